package leaderboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	for _, valid := range []string{"weekly", "monthly", "alltime", "streak"} {
		typ, err := ParseType(valid)
		require.NoError(t, err)
		assert.Equal(t, valid, string(typ))
	}

	for _, invalid := range []string{"", "daily", "ALLTIME", "yearly"} {
		_, err := ParseType(invalid)
		assert.Error(t, err, "token %q", invalid)
	}
}

func TestScoreColumn(t *testing.T) {
	assert.Equal(t, "weekly_xp", TypeWeekly.ScoreColumn())
	assert.Equal(t, "monthly_xp", TypeMonthly.ScoreColumn())
	assert.Equal(t, "lifetime_xp", TypeAllTime.ScoreColumn())
	assert.Equal(t, "current_streak", TypeStreak.ScoreColumn())
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, ClampLimit(0))
	assert.Equal(t, DefaultLimit, ClampLimit(-5))
	assert.Equal(t, 1, ClampLimit(1))
	assert.Equal(t, 50, ClampLimit(50))
	assert.Equal(t, MaxLimit, ClampLimit(501))
	assert.Equal(t, MaxLimit, ClampLimit(1_000_000))
}

func TestMostRecentMonday(t *testing.T) {
	tests := []struct {
		now  string
		want string
	}{
		{"2024-05-15T13:45:00Z", "2024-05-13T00:00:00Z"}, // Wednesday
		{"2024-05-13T00:00:00Z", "2024-05-13T00:00:00Z"}, // Monday midnight exactly
		{"2024-05-19T23:59:59Z", "2024-05-13T00:00:00Z"}, // Sunday night
		{"2024-01-01T10:00:00Z", "2024-01-01T00:00:00Z"}, // Monday New Year
		{"2024-03-03T12:00:00Z", "2024-02-26T00:00:00Z"}, // Sunday crossing a month boundary
	}

	for _, tt := range tests {
		now, err := time.Parse(time.RFC3339, tt.now)
		require.NoError(t, err)
		want, err := time.Parse(time.RFC3339, tt.want)
		require.NoError(t, err)

		got := MostRecentMonday(now)
		assert.True(t, got.Equal(want), "now=%s got=%s want=%s", tt.now, got, want)
		assert.Equal(t, time.Monday, got.Weekday())
	}
}

func TestFirstOfMonth(t *testing.T) {
	now, err := time.Parse(time.RFC3339, "2024-12-31T23:59:59Z")
	require.NoError(t, err)

	got := FirstOfMonth(now)
	assert.Equal(t, "2024-12-01T00:00:00Z", got.Format(time.RFC3339))

	first, _ := time.Parse(time.RFC3339, "2024-02-01T00:00:00Z")
	assert.True(t, FirstOfMonth(first).Equal(first))
}

func TestCountRankTieSemantics(t *testing.T) {
	scores := []int{500, 500, 500, 300, 100}

	// All three tied leaders share rank 1, even though positionally they
	// occupy list ranks 1, 2 and 3.
	assert.Equal(t, 1, countRank(500, scores))

	// The next score down is ranked 4: three players are strictly ahead.
	assert.Equal(t, 4, countRank(300, scores))
	assert.Equal(t, 5, countRank(100, scores))

	// A score not present in the set still ranks consistently: all four
	// of 500, 500, 500 and 300 are strictly greater.
	assert.Equal(t, 5, countRank(250, scores))

	// Count-based self rank never exceeds the positional rank of the same
	// user in a descending listing.
	for pos, s := range scores {
		assert.LessOrEqual(t, countRank(s, scores), pos+1)
	}
}

func TestCountRankEmpty(t *testing.T) {
	assert.Equal(t, 1, countRank(0, nil))
}
