package progression

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDate(s string) time.Time {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestCalculateStatsEmptyLog(t *testing.T) {
	stats := calculateStatsAt(ActivityLog{}, DefaultActivities(), mustDate("2024-06-01"))

	assert.Equal(t, DefaultStats(), stats)
}

func TestCalculateStatsExample(t *testing.T) {
	log := ActivityLog{
		"2024-01-01": {"strength": true, "knowledge:reading": true},
	}

	stats := calculateStatsAt(log, DefaultActivities(), mustDate("2024-01-02"))

	assert.Equal(t, 2, stats.TotalTasks)
	assert.Equal(t, 1, stats.Level)
	assert.Equal(t, 20, stats.Experience)
	assert.Equal(t, 0, stats.CurrentStreak)
}

func TestTotalTasksIndependentOfSubGoalMix(t *testing.T) {
	// Same number of completions spread differently across main activities
	// and sub-goals must produce identical totals and XP.
	mainOnly := ActivityLog{
		"2024-03-01": {"gym": true, "books": true},
		"2024-03-02": {"office": true, "mental": true},
	}
	mixed := ActivityLog{
		"2024-03-01": {"gym": true, "gym:pushups": true},
		"2024-03-02": {"books:reading": true, "books:audio": true},
	}

	today := mustDate("2024-03-10")
	a := calculateStatsAt(mainOnly, DefaultActivities(), today)
	b := calculateStatsAt(mixed, DefaultActivities(), today)

	assert.Equal(t, 4, a.TotalTasks)
	assert.Equal(t, a.TotalTasks, b.TotalTasks)
	assert.Equal(t, a.Level, b.Level)
	assert.Equal(t, a.Experience, b.Experience)
}

func TestSubGoalCountsIndependentlyOfParent(t *testing.T) {
	log := ActivityLog{
		"2024-03-01": {"gym": true, "gym:pushups": true, "gym:squats": true},
	}

	stats := calculateStatsAt(log, DefaultActivities(), mustDate("2024-03-01"))

	assert.Equal(t, 3, stats.TotalTasks)
	assert.Equal(t, 30, stats.Experience)
}

func TestNotesAndExemptActivitiesNeverScore(t *testing.T) {
	log := ActivityLog{
		"2024-03-01": {
			"gym":          true,
			"notes":        "wrote a journal entry",
			"coolness":     true,
			"coolness:fit": true,
		},
	}
	defs := []Activity{
		{ID: "gym", Name: "Gym"},
		{ID: "coolness", Name: "Coolness", XPExempt: true},
		{ID: "notes", Name: "Life Notes", XPExempt: true},
	}

	stats := calculateStatsAt(log, defs, mustDate("2024-03-01"))

	// Only the gym completion counts; the exempt parent also shields its
	// sub-goal.
	assert.Equal(t, 1, stats.TotalTasks)
	assert.Equal(t, 1, stats.CurrentStreak)
}

func TestMalformedEntriesAreIgnored(t *testing.T) {
	log := ActivityLog{
		"2024-03-01": {
			"gym":    "yes",     // string instead of bool
			"books":  float64(1), // number from loose JSON
			"office": false,
			"mental": nil,
		},
		"2024-03-02": {"gym": true},
	}

	stats := calculateStatsAt(log, DefaultActivities(), mustDate("2024-03-02"))

	assert.Equal(t, 1, stats.TotalTasks)
	assert.Equal(t, 1, stats.CurrentStreak)
}

func TestLevelExperienceRoundTrip(t *testing.T) {
	// Reconstructing total XP from (level, experience) via the threshold
	// sum must return the XP the stats were computed from.
	for _, tasks := range []int{0, 1, 9, 10, 25, 100, 777, 5000} {
		t.Run(fmt.Sprintf("tasks=%d", tasks), func(t *testing.T) {
			log := ActivityLog{}
			day := mustDate("2020-01-01")
			remaining := tasks
			for remaining > 0 {
				record := DayRecord{}
				for i := 0; i < 5 && remaining > 0; i++ {
					record[fmt.Sprintf("gym:set%d", i)] = true
					remaining--
				}
				log[day.Format(dateLayout)] = record
				day = day.AddDate(0, 0, 1)
			}

			stats := calculateStatsAt(log, DefaultActivities(), mustDate("2024-06-01"))
			require.Equal(t, tasks, stats.TotalTasks)

			reconstructed := stats.Experience
			for level := 1; level < stats.Level; level++ {
				reconstructed += XPThreshold(level)
			}
			assert.Equal(t, tasks*XPPerTask, reconstructed)
			assert.Less(t, stats.Experience, XPThreshold(stats.Level))
		})
	}
}

func TestLevelThresholdProgression(t *testing.T) {
	assert.Equal(t, 100, XPThreshold(1))
	assert.Equal(t, 150, XPThreshold(2))
	assert.Equal(t, 200, XPThreshold(3))

	// 10 tasks = 100 XP clears level 1 exactly.
	level, exp := levelFromXP(100)
	assert.Equal(t, 2, level)
	assert.Equal(t, 0, exp)

	// 100 + 150 = 250 XP clears level 2 exactly.
	level, exp = levelFromXP(260)
	assert.Equal(t, 3, level)
	assert.Equal(t, 10, exp)
}

func TestStreakCountsBackwardFromToday(t *testing.T) {
	log := ActivityLog{
		"2024-05-08": {"gym": true},
		"2024-05-09": {"books": true},
		"2024-05-10": {"gym": true},
	}

	stats := calculateStatsAt(log, DefaultActivities(), mustDate("2024-05-10"))
	assert.Equal(t, 3, stats.CurrentStreak)
}

func TestStreakBreaksOnEmptyToday(t *testing.T) {
	// Ten consecutive completed days immediately before an empty today:
	// the walk starts at today, finds no completion, and stops at zero.
	// The prior run does not count.
	log := ActivityLog{}
	day := mustDate("2024-05-01")
	for i := 0; i < 10; i++ {
		log[day.Format(dateLayout)] = DayRecord{"gym": true}
		day = day.AddDate(0, 0, 1)
	}

	stats := calculateStatsAt(log, DefaultActivities(), mustDate("2024-05-11"))
	assert.Equal(t, 0, stats.CurrentStreak)
}

func TestStreakExtendsByOneWithTodayCompletion(t *testing.T) {
	log := ActivityLog{}
	day := mustDate("2024-05-01")
	for i := 0; i < 10; i++ {
		log[day.Format(dateLayout)] = DayRecord{"gym": true}
		day = day.AddDate(0, 0, 1)
	}

	today := mustDate("2024-05-11")
	before := calculateStatsAt(log, DefaultActivities(), mustDate("2024-05-10"))
	require.Equal(t, 10, before.CurrentStreak)

	log[today.Format(dateLayout)] = DayRecord{"books": true}
	after := calculateStatsAt(log, DefaultActivities(), today)
	assert.Equal(t, 11, after.CurrentStreak)
}

func TestStreakIgnoresDaysWithOnlyNotes(t *testing.T) {
	log := ActivityLog{
		"2024-05-09": {"gym": true},
		"2024-05-10": {"notes": "rest day"},
	}

	stats := calculateStatsAt(log, DefaultActivities(), mustDate("2024-05-10"))
	assert.Equal(t, 0, stats.CurrentStreak)
}

func TestDominantActivityDrivesTitle(t *testing.T) {
	log := ActivityLog{
		"2024-05-01": {"books": true, "books:reading": true},
		"2024-05-02": {"books": true, "gym": true},
	}

	stats := calculateStatsAt(log, DefaultActivities(), mustDate("2024-05-02"))

	// Level 1 maps to ladder index 0 for every activity.
	assert.Equal(t, "E-Rank Hunter", stats.Title)
	assert.Equal(t, "books", dominantActivity(map[string]int{"books": 3, "gym": 1}))
}

func TestDominantActivityTieBreaksDeterministically(t *testing.T) {
	counts := map[string]int{"office": 2, "books": 2, "gym": 1}
	assert.Equal(t, "books", dominantActivity(counts))
}

func TestTitleLadder(t *testing.T) {
	tests := []struct {
		level    int
		activity string
		want     string
	}{
		{1, "gym", "E-Rank Hunter"},
		{9, "gym", "E-Rank Hunter"},
		{10, "gym", "D-Rank Hunter"},
		{25, "books", "C-Rank Hunter"},
		{59, "mental", "S-Rank Hunter"},
		{60, "gym", "Iron Body Monarch"},
		{60, "coolness", "Shadow Monarch"},
		{9999, "books", "Shadow Sage"},
		{60, "unknown-custom", "Iron Body Monarch"}, // falls back to gym ladder
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, TitleFor(tt.level, tt.activity), "level %d activity %s", tt.level, tt.activity)
	}
}
