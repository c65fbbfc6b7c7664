package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func at(hour, min, sec int) time.Time {
	return time.Date(2026, time.February, 1, hour, min, sec, 0, time.Local)
}

func TestCompute(t *testing.T) {
	engine := New(nil)

	t.Run("nil range is the zero quote", func(t *testing.T) {
		q := engine.Compute(nil, 20000)
		assert.True(t, q.Zero())
	})

	t.Run("incomplete range is the zero quote", func(t *testing.T) {
		q := engine.Compute(&TimeRange{Start: at(10, 0, 0)}, 20000)
		assert.True(t, q.Zero())

		q = engine.Compute(&TimeRange{End: at(10, 0, 0)}, 20000)
		assert.True(t, q.Zero())
	})

	t.Run("end not after start is a zero quote, not an error", func(t *testing.T) {
		cases := []struct {
			name  string
			start time.Time
			end   time.Time
		}{
			{"equal endpoints", at(10, 0, 0), at(10, 0, 0)},
			{"end one minute before start", at(10, 0, 0), at(9, 59, 0)},
			{"end a day before start", at(10, 0, 0), at(10, 0, 0).AddDate(0, 0, -1)},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				q := engine.Compute(&TimeRange{Start: tc.start, End: tc.end}, 20000)
				assert.True(t, q.Zero(), "quote: %+v", q)
			})
		}
	})

	t.Run("fractional hours bill as full hours", func(t *testing.T) {
		cases := []struct {
			name        string
			start, end  time.Time
			rate        float64
			billedHours int
			totalPrice  float64
		}{
			{"exactly one hour", at(10, 0, 0), at(11, 0, 0), 20000, 1, 20000},
			{"ninety minutes bills two hours", at(10, 0, 0), at(11, 30, 0), 20000, 2, 40000},
			{"one second over the hour bills two hours", at(10, 0, 0), at(11, 0, 1), 20000, 2, 40000},
			{"one minute bills one hour", at(10, 0, 0), at(10, 1, 0), 5000, 1, 5000},
			{"exactly one day", at(10, 0, 0), at(10, 0, 0).AddDate(0, 0, 1), 1500, 24, 36000},
			{"zero rate prices to zero", at(10, 0, 0), at(12, 0, 0), 0, 2, 0},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				q := engine.Compute(&TimeRange{Start: tc.start, End: tc.end}, tc.rate)
				assert.Equal(t, tc.billedHours, q.BilledHours)
				assert.Equal(t, tc.totalPrice, q.TotalPrice)
				assert.Greater(t, q.RawHours, 0.0)
			})
		}
	})

	t.Run("total is always a multiple of the hourly rate", func(t *testing.T) {
		rate := 3200.0
		for minutes := 1; minutes <= 300; minutes += 7 {
			r := &TimeRange{Start: at(9, 0, 0), End: at(9, 0, 0).Add(time.Duration(minutes) * time.Minute)}
			q := engine.Compute(r, rate)
			require.Equal(t, float64(q.BilledHours)*rate, q.TotalPrice, "minutes=%d", minutes)
			require.GreaterOrEqual(t, float64(q.BilledHours), q.RawHours)
		}
	})
}

func TestQuickDuration(t *testing.T) {
	t.Run("rounds forward to the next half hour", func(t *testing.T) {
		engine := New(nil)
		base := at(12, 13, 45)
		start, end := engine.QuickDuration(&base, 1, Hour)

		assert.Equal(t, at(12, 30, 0), start)
		assert.Equal(t, at(13, 30, 0), end)
	})

	t.Run("keeps an anchor already on a boundary", func(t *testing.T) {
		engine := New(nil)
		for _, min := range []int{0, 30} {
			base := at(12, min, 0)
			start, end := engine.QuickDuration(&base, 1, Hour)
			assert.Equal(t, base, start, "minute=%d", min)
			assert.Equal(t, base.Add(time.Hour), end, "minute=%d", min)
		}
	})

	t.Run("never rounds backwards", func(t *testing.T) {
		engine := New(nil)
		for min := 0; min < 60; min++ {
			base := at(12, min, 10)
			start, _ := engine.QuickDuration(&base, 1, Hour)
			if min%30 == 0 {
				require.Equal(t, base, start, "minute=%d", min)
				continue
			}
			require.True(t, start.After(base), "minute=%d start=%v", min, start)
			require.Zero(t, start.Minute()%30, "minute=%d", min)
			require.Zero(t, start.Second(), "minute=%d", min)
		}
	})

	t.Run("nil base anchors on the clock", func(t *testing.T) {
		engine := New(fixedClock(at(8, 50, 12)))
		start, end := engine.QuickDuration(nil, 1, Day)

		assert.Equal(t, at(9, 0, 0), start)
		assert.Equal(t, at(9, 0, 0).AddDate(0, 0, 1), end)
	})
}
