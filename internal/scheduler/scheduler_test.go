package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}

func TestNextWeeklyReset(t *testing.T) {
	tests := []struct {
		after string
		want  string
	}{
		{"2024-05-15T13:45:00Z", "2024-05-20T00:00:00Z"}, // Wednesday
		{"2024-05-19T23:59:59Z", "2024-05-20T00:00:00Z"}, // Sunday just before
		{"2024-05-20T00:00:00Z", "2024-05-27T00:00:00Z"}, // exactly at the boundary
		{"2024-12-31T12:00:00Z", "2025-01-06T00:00:00Z"}, // year boundary
	}

	for _, tt := range tests {
		got := NextWeeklyReset(parse(t, tt.after))
		assert.Equal(t, tt.want, got.Format(time.RFC3339), "after=%s", tt.after)
		assert.Equal(t, time.Monday, got.Weekday())
	}
}

func TestNextMonthlyReset(t *testing.T) {
	tests := []struct {
		after string
		want  string
	}{
		{"2024-05-15T13:45:00Z", "2024-06-01T00:00:00Z"},
		{"2024-05-01T00:00:00Z", "2024-06-01T00:00:00Z"}, // exactly at the boundary
		{"2024-12-31T23:59:59Z", "2025-01-01T00:00:00Z"}, // year boundary
		{"2024-01-31T12:00:00Z", "2024-02-01T00:00:00Z"},
	}

	for _, tt := range tests {
		got := NextMonthlyReset(parse(t, tt.after))
		assert.Equal(t, tt.want, got.Format(time.RFC3339), "after=%s", tt.after)
	}
}

func TestNextDailyAt(t *testing.T) {
	next := NextDailyAt(18)

	assert.Equal(t, "2024-05-15T18:00:00Z", next(parse(t, "2024-05-15T13:45:00Z")).Format(time.RFC3339))
	assert.Equal(t, "2024-05-16T18:00:00Z", next(parse(t, "2024-05-15T18:00:00Z")).Format(time.RFC3339))
	assert.Equal(t, "2024-05-16T18:00:00Z", next(parse(t, "2024-05-15T21:30:00Z")).Format(time.RFC3339))
}

func TestSchedulerRunsAndSurvivesFailure(t *testing.T) {
	var runs atomic.Int32

	s := New()
	s.Add(Job{
		Name: "flaky",
		Next: func(after time.Time) time.Time {
			return after.Add(5 * time.Millisecond)
		},
		Run: func(ctx context.Context) error {
			if runs.Add(1) == 1 {
				return errors.New("persistence unavailable")
			}
			return nil
		},
	})
	s.Start()

	// The first run fails; the scheduler must keep firing.
	assert.Eventually(t, func() bool {
		return runs.Load() >= 3
	}, 2*time.Second, 5*time.Millisecond)

	s.Stop()
}

func TestSchedulerStopBeforeBoundary(t *testing.T) {
	var runs atomic.Int32

	s := New()
	s.Add(Job{
		Name: "distant",
		Next: func(after time.Time) time.Time {
			return after.Add(time.Hour)
		},
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})
	s.Start()
	s.Stop()

	assert.Equal(t, int32(0), runs.Load())
}
