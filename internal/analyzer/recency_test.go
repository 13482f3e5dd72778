package analyzer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecencyBonusBands(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	cases := []struct {
		name string
		age  time.Duration
		want float64
	}{
		{"exactly now", 0, 1.5},
		{"just inside first band", day - time.Minute, 1.5},
		{"just past one day", day + time.Minute, 1.2},
		{"two days", 2 * day, 1.2},
		{"just inside three days", 3*day - time.Minute, 1.2},
		{"just past three days", 3*day + time.Minute, 1.0},
		{"just inside seven days", 7*day - time.Minute, 1.0},
		{"just past seven days", 7*day + time.Minute, 0.7},
		{"ten days", 10 * day, 0.7},
		{"just inside thirty days", 30*day - time.Minute, 0.7},
		{"just past thirty days", 30*day + time.Minute, 0.3},
		{"forty days", 40 * day, 0.3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, RecencyBonus(now, now.Add(-tc.age)))
		})
	}
}
