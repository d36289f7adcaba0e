package progression

import (
	"strings"
	"time"
)

const (
	// NotesKey is the reserved day-record key that holds free text instead
	// of a completion flag. It never counts toward XP.
	NotesKey = "notes"

	// SubGoalSeparator joins a parent activity id and a sub-goal id into a
	// composite day-record key, e.g. "books:reading".
	SubGoalSeparator = ":"

	// XPPerTask is the experience awarded per completed task.
	XPPerTask = 10

	dateLayout = "2006-01-02"
)

// DayRecord maps an activity key (or "parent:subgoal" composite key) to its
// completion flag. The reserved NotesKey holds a string instead.
type DayRecord map[string]any

// ActivityLog maps an ISO date (YYYY-MM-DD) to that day's record.
type ActivityLog map[string]DayRecord

type SubGoal struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

type Activity struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Icon     string    `json:"icon"`
	XPExempt bool      `json:"xp_exempt,omitempty"`
	SubGoals []SubGoal `json:"sub_goals,omitempty"`
}

// Stats is the derived progression state for one player. It is recomputed
// in full from the activity log on every save.
type Stats struct {
	Level         int    `json:"level"`
	Experience    int    `json:"experience"`
	TotalTasks    int    `json:"total_tasks"`
	CurrentStreak int    `json:"current_streak"`
	Title         string `json:"title"`
}

// CalculateStats derives a player's stats from their full activity log and
// activity definitions. It is total over well-formed JSON input: values
// that are not boolean true, unknown fields, and the notes key are treated
// as absent, never as errors. The streak counts backward from today (UTC).
func CalculateStats(log ActivityLog, defs []Activity) Stats {
	return calculateStatsAt(log, defs, time.Now().UTC())
}

func calculateStatsAt(log ActivityLog, defs []Activity, today time.Time) Stats {
	exempt := exemptSet(defs)

	totalCompleted := 0
	activityCounts := make(map[string]int)

	for _, day := range log {
		for key, value := range day {
			if !completed(key, value, exempt) {
				continue
			}
			totalCompleted++
			activityCounts[parentActivity(key)]++
		}
	}

	totalXP := totalCompleted * XPPerTask
	level, experience := levelFromXP(totalXP)
	streak := streakAt(log, exempt, today)
	title := TitleFor(level, dominantActivity(activityCounts))

	return Stats{
		Level:         level,
		Experience:    experience,
		TotalTasks:    totalCompleted,
		CurrentStreak: streak,
		Title:         title,
	}
}

// XPThreshold returns the XP required to clear the given level:
// 100 for level 1, then +50 per level.
func XPThreshold(level int) int {
	return 100 + (level-1)*50
}

// levelFromXP runs the progressive leveling loop: starting at level 1,
// repeatedly pay the current level's threshold while enough XP remains.
// The leftover is the experience toward the next level.
func levelFromXP(totalXP int) (level, experience int) {
	level = 1
	remaining := totalXP
	for remaining >= XPThreshold(level) {
		remaining -= XPThreshold(level)
		level++
	}
	return level, remaining
}

// streakAt walks backward one day at a time starting from today and stops
// at the first day without a scoring-eligible completion. Today itself
// breaks the streak when empty.
func streakAt(log ActivityLog, exempt map[string]bool, today time.Time) int {
	streak := 0
	day := today
	for {
		record, ok := log[day.Format(dateLayout)]
		if !ok || !anyCompleted(record, exempt) {
			return streak
		}
		streak++
		day = day.AddDate(0, 0, -1)
	}
}

// dominantActivity picks the activity with the most completions,
// falling back to the default activity when the log is empty. Ties break
// toward the lexicographically smaller id so the result is deterministic.
func dominantActivity(counts map[string]int) string {
	best := FallbackActivityID
	bestCount := 0
	for id, n := range counts {
		if n > bestCount || (n == bestCount && bestCount > 0 && id < best) {
			best = id
			bestCount = n
		}
	}
	return best
}

// exemptSet collects activity ids whose completions never score. Sub-goals
// inherit exemption from their parent.
func exemptSet(defs []Activity) map[string]bool {
	exempt := make(map[string]bool)
	for _, def := range defs {
		if def.XPExempt {
			exempt[def.ID] = true
		}
	}
	return exempt
}

// completed reports whether a key/value pair is a scoring-eligible
// completion. Keys without a matching definition still count: deleting an
// activity must not retroactively drain a player's XP.
func completed(key string, value any, exempt map[string]bool) bool {
	if key == NotesKey {
		return false
	}
	done, ok := value.(bool)
	if !ok || !done {
		return false
	}
	return !exempt[parentActivity(key)]
}

func anyCompleted(record DayRecord, exempt map[string]bool) bool {
	for key, value := range record {
		if completed(key, value, exempt) {
			return true
		}
	}
	return false
}

// parentActivity strips the sub-goal suffix from a composite key.
func parentActivity(key string) string {
	if i := strings.Index(key, SubGoalSeparator); i >= 0 {
		return key[:i]
	}
	return key
}
