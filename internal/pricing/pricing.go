// Package pricing computes rental price quotes from a proposed time window
// and an item's hourly rate. It performs no I/O and holds no state beyond an
// injected clock.
package pricing

import (
	"math"
	"time"
)

// TimeRange is a candidate rental window. Times carry local wall-clock
// semantics; no UTC normalization is applied.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Complete reports whether both endpoints have been picked.
func (r *TimeRange) Complete() bool {
	return r != nil && !r.Start.IsZero() && !r.End.IsZero()
}

// Quote is the displayable result of pricing a window. It is derived state,
// recomputed on every input change and never persisted.
type Quote struct {
	BilledHours int     `json:"billed_hours"`
	TotalPrice  float64 `json:"total_price"`
	RawHours    float64 `json:"raw_hours"`
}

// Zero reports whether the quote is the zero quote.
func (q Quote) Zero() bool {
	return q.BilledHours == 0 && q.TotalPrice == 0 && q.RawHours == 0
}

// Unit is the step size for quick-duration shortcuts.
type Unit time.Duration

const (
	Hour = Unit(time.Hour)
	Day  = Unit(24 * time.Hour)
)

// Engine prices rental windows. The zero value is not usable; construct with
// New.
type Engine struct {
	now func() time.Time
}

// New returns an Engine anchored on the given clock. A nil clock falls back
// to time.Now.
func New(now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{now: now}
}

// Compute prices a window at the given hourly rate.
//
// An incomplete range and a range whose end is not strictly after its start
// are normal live-preview states, not errors: both yield the zero quote.
// Submission gating (both endpoints present, start < end) is the caller's
// responsibility at submission time, never here.
//
// Any fraction of an hour bills as a full hour. The ceiling is a deliberate
// business rule favoring the lender; do not replace it with rounding or
// truncation.
func (e *Engine) Compute(r *TimeRange, hourlyRate float64) Quote {
	if !r.Complete() {
		return Quote{}
	}
	rawHours := r.End.Sub(r.Start).Hours()
	if rawHours <= 0 {
		return Quote{}
	}
	billed := int(math.Ceil(rawHours))
	return Quote{
		BilledHours: billed,
		TotalPrice:  float64(billed) * hourlyRate,
		RawHours:    rawHours,
	}
}

// QuickDuration proposes a rental window a fixed offset from base. A nil base
// anchors on the engine clock.
//
// The anchor is rounded forward to the next 30-minute boundary so that
// "+1 hour" from 12:13 lands on 12:30–13:30 rather than 12:13–13:13. An
// anchor already on a boundary is kept as-is; rounding never moves backwards.
func (e *Engine) QuickDuration(base *time.Time, amount int, unit Unit) (start, end time.Time) {
	anchor := e.now()
	if base != nil {
		anchor = *base
	}
	start = roundUpHalfHour(anchor)
	end = start.Add(time.Duration(amount) * time.Duration(unit))
	return start, end
}

func roundUpHalfHour(t time.Time) time.Time {
	rem := t.Minute() % 30
	if rem == 0 {
		return t
	}
	t = t.Add(time.Duration(30-rem) * time.Minute)
	return t.Truncate(time.Minute)
}
