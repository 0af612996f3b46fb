package worker

import (
	"context"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signal-miniapp/internal/models"
	"github.com/signal-miniapp/internal/storage"
	"github.com/signal-miniapp/internal/types"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func signal(id int64, expiresIn time.Duration) models.Signal {
	return models.Signal{
		ID:        id,
		Name:      "signal",
		ExpiresAt: types.Timestamp{Time: epoch.Add(expiresIn)},
	}
}

func TestCompute_HoursAndMinutes(t *testing.T) {
	snap := Compute([]models.Signal{
		signal(1, 5*time.Hour+42*time.Minute+30*time.Second),
		signal(2, 10*time.Minute),
		signal(3, -time.Hour),
	}, epoch)

	require.Len(t, snap.Signals, 3)
	assert.Equal(t, int64(3), snap.Signals[0].SignalID)
	assert.True(t, snap.Signals[0].Expired)
	assert.Zero(t, snap.Signals[0].Hours)
	assert.Zero(t, snap.Signals[0].Minutes)

	assert.Equal(t, 0, snap.Signals[1].Hours)
	assert.Equal(t, 10, snap.Signals[1].Minutes)

	assert.Equal(t, 5, snap.Signals[2].Hours)
	assert.Equal(t, 42, snap.Signals[2].Minutes)
	assert.Equal(t, epoch, snap.ComputedAt)
}

func TestCompute_NeverNegative(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("remaining time is clamped at zero", prop.ForAll(
		func(offsetSeconds int64) bool {
			snap := Compute([]models.Signal{signal(1, time.Duration(offsetSeconds)*time.Second)}, epoch)
			c := snap.Signals[0]
			return c.Remaining >= 0 && c.Hours >= 0 && c.Minutes >= 0 && c.Minutes < 60 &&
				c.Expired == (offsetSeconds <= 0)
		},
		gen.Int64Range(-72*3600, 72*3600),
	))

	properties.TestingRun(t)
}

func TestCountdownBoard_RefreshReadsOnlyCachedSignals(t *testing.T) {
	caches := storage.NewSessionCaches(nil)
	board := NewCountdownBoard()
	board.now = func() time.Time { return epoch }

	withSignals := caches.For("a")
	_, err := withSignals.Get(context.Background(), storage.KeyActiveSignals, func(ctx context.Context) (any, error) {
		return []models.Signal{signal(7, 2*time.Hour)}, nil
	})
	require.NoError(t, err)
	caches.For("b")

	assert.Equal(t, 1, board.Refresh(caches))

	snap, ok := board.Snapshot("a")
	require.True(t, ok)
	require.Len(t, snap.Signals, 1)
	assert.Equal(t, 2, snap.Signals[0].Hours)

	_, ok = board.Snapshot("b")
	assert.False(t, ok)

	board.now = func() time.Time { return epoch.Add(3 * time.Hour) }
	board.Refresh(caches)
	snap, _ = board.Snapshot("a")
	assert.True(t, snap.Signals[0].Expired)

	withSignals.InvalidateAll()
	assert.Equal(t, 0, board.Refresh(caches))
	_, ok = board.Snapshot("a")
	assert.False(t, ok)
}

func TestCountdownBoard_Forget(t *testing.T) {
	caches := storage.NewSessionCaches(nil)
	cache := caches.For("a")
	_, err := cache.Get(context.Background(), storage.KeyActiveSignals, func(ctx context.Context) (any, error) {
		return []models.Signal{signal(1, time.Hour)}, nil
	})
	require.NoError(t, err)

	board := NewCountdownBoard()
	board.Refresh(caches)
	board.Forget("a")
	_, ok := board.Snapshot("a")
	assert.False(t, ok)
}
