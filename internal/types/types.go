// Package types provides common type definitions for the signal mini-app client.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Plan is the subscription tier ordinal the backend stores on the user
type Plan int

const (
	// PlanStandard is the default tier
	PlanStandard Plan = 0
	// PlanPremium is the middle tier
	PlanPremium Plan = 1
	// PlanPremiumPlus is the top tier
	PlanPremiumPlus Plan = 2
)

// Plans lists every selectable plan in display order
var Plans = []Plan{PlanStandard, PlanPremium, PlanPremiumPlus}

// Valid reports whether p is a known plan ordinal
func (p Plan) Valid() bool {
	return p >= PlanStandard && p <= PlanPremiumPlus
}

func (p Plan) String() string {
	switch p {
	case PlanStandard:
		return "standard"
	case PlanPremium:
		return "premium"
	case PlanPremiumPlus:
		return "premium-plus"
	default:
		return fmt.Sprintf("plan(%d)", int(p))
	}
}

// ReinvestPercent is the share of profit automatically reinvested
type ReinvestPercent int

// DefaultReinvestPercent is preselected when the reinvest step opens
const DefaultReinvestPercent ReinvestPercent = 25

// ReinvestPercents is the closed set offered to the user
var ReinvestPercents = []ReinvestPercent{25, 50, 75, 100}

// Valid reports whether v belongs to ReinvestPercents
func (v ReinvestPercent) Valid() bool {
	for _, allowed := range ReinvestPercents {
		if v == allowed {
			return true
		}
	}
	return false
}

// Timestamp decodes the several datetime renderings the backend emits:
// RFC3339 with or without offset, and "2006-01-02 15:04:05 -0700".
// Values without an offset are taken as UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses s using the accepted layouts
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// UnmarshalJSON implements json.Unmarshaler
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalJSON implements json.Marshaler
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339))
}
