package domain

import (
	"testing"
	"time"
)

func TestPeriodEnd(t *testing.T) {
	start := time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name  string
		cycle BillingCycle
		want  time.Time
	}{
		{"monthly", BillingCycleMonthly, time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC)},
		{"yearly", BillingCycleYearly, time.Date(2027, 1, 31, 12, 0, 0, 0, time.UTC)},
		{"lifetime", BillingCycleLifetime, time.Date(2126, 1, 31, 12, 0, 0, 0, time.UTC)},
		{"unknown falls back to monthly", BillingCycle("weekly"), time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.cycle.PeriodEnd(start)
			if !got.Equal(tc.want) {
				t.Fatalf("PeriodEnd(%s): expected %s, got %s", tc.cycle, tc.want, got)
			}
		})
	}
}
