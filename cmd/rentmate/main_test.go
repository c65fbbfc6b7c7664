package main

import (
	"context"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentmate/rentmate-go/internal/datasource"
	"github.com/rentmate/rentmate-go/internal/pricing"
)

func testApp() *app {
	return &app{ds: datasource.NewSimulated(nil), engine: pricing.New(nil)}
}

// captureStdout runs fn with os.Stdout redirected and returns what it wrote.
func captureStdout(t *testing.T, fn func() error) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	runErr := fn()

	w.Close()
	os.Stdout = old
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, runErr)
	return string(out)
}

func TestQuoteCommand(t *testing.T) {
	a := testApp()
	ctx := context.Background()

	t.Run("complete window bills the ceiling", func(t *testing.T) {
		out := captureStdout(t, func() error {
			return a.cmdQuote(ctx, []string{
				"-rate", "20000",
				"-start", "2026-02-01T10:00:00Z",
				"-end", "2026-02-01T11:30:00Z",
			})
		})
		assert.Contains(t, out, "raw duration: 1.50h")
		assert.Contains(t, out, "billed: 2h")
		assert.Contains(t, out, "total: 40000")
	})

	t.Run("missing endpoint previews as zero", func(t *testing.T) {
		out := captureStdout(t, func() error {
			return a.cmdQuote(ctx, []string{"-rate", "20000", "-start", "2026-02-01T10:00:00Z"})
		})
		assert.Contains(t, out, "nothing to quote yet")
	})

	t.Run("quick duration fills both endpoints", func(t *testing.T) {
		out := captureStdout(t, func() error {
			return a.cmdQuote(ctx, []string{"-rate", "1000", "-plus-hours", "2"})
		})
		assert.Contains(t, out, "billed: 2h")
		assert.Contains(t, out, "total: 2000")
	})
}

func TestRentCommand(t *testing.T) {
	ctx := context.Background()

	t.Run("request carries the quoted total", func(t *testing.T) {
		a := testApp()
		out := captureStdout(t, func() error {
			return a.cmdRent(ctx, []string{
				"-item", datasource.FixtureDrillID,
				"-start", "2026-02-01T10:00:00Z",
				"-end", "2026-02-01T11:30:00Z",
			})
		})
		assert.Contains(t, out, "2h billed, total 40000")

		rentals, err := a.ds.ListRentals(ctx, "renter")
		require.NoError(t, err)
		require.Len(t, rentals, 1)
		assert.Equal(t, 40000.0, rentals[0].TotalPrice)
	})

	t.Run("gating rejects inverted and partial windows", func(t *testing.T) {
		a := testApp()
		err := a.cmdRent(ctx, []string{
			"-item", datasource.FixtureDrillID,
			"-start", "2026-02-01T11:30:00Z",
			"-end", "2026-02-01T10:00:00Z",
		})
		require.Error(t, err)

		err = a.cmdRent(ctx, []string{"-item", datasource.FixtureDrillID, "-start", "2026-02-01T10:00:00Z"})
		require.Error(t, err)

		rentals, err := a.ds.ListRentals(ctx, "renter")
		require.NoError(t, err)
		assert.Empty(t, rentals)
	})
}
