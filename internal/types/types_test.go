package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlan_Valid(t *testing.T) {
	for _, p := range Plans {
		assert.True(t, p.Valid(), p.String())
	}
	assert.False(t, Plan(-1).Valid())
	assert.False(t, Plan(3).Valid())
	assert.Equal(t, "plan(7)", Plan(7).String())
}

func TestReinvestPercent_ClosedSet(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("only 25/50/75/100 are valid", prop.ForAll(
		func(v int) bool {
			want := v == 25 || v == 50 || v == 75 || v == 100
			return ReinvestPercent(v).Valid() == want
		},
		gen.IntRange(-10, 200),
	))

	properties.TestingRun(t)
	assert.True(t, DefaultReinvestPercent.Valid())
}

func TestTimestamp_Unmarshal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{"rfc3339 offset", `"2025-01-02T10:00:00+03:00"`, time.Date(2025, 1, 2, 7, 0, 0, 0, time.UTC)},
		{"naive iso", `"2025-01-02T10:00:00.123456"`, time.Date(2025, 1, 2, 10, 0, 0, 123456000, time.UTC)},
		{"token expiry", `"2025-01-02 10:00:00 +0300"`, time.Date(2025, 1, 2, 7, 0, 0, 0, time.UTC)},
		{"space separated", `"2025-01-02 10:00:00"`, time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts Timestamp
			require.NoError(t, json.Unmarshal([]byte(tt.in), &ts))
			assert.True(t, tt.want.Equal(ts.Time), "got %s", ts.Time)
		})
	}
}

func TestTimestamp_NullAndGarbage(t *testing.T) {
	var ts Timestamp
	require.NoError(t, json.Unmarshal([]byte(`null`), &ts))
	assert.True(t, ts.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))

	out, err := json.Marshal(Timestamp{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))
}
