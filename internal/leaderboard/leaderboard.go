package leaderboard

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type selects which score counter a leaderboard query ranks by.
type Type string

const (
	TypeWeekly  Type = "weekly"
	TypeMonthly Type = "monthly"
	TypeAllTime Type = "alltime"
	TypeStreak  Type = "streak"
)

// ParseType validates a leaderboard type token at the API boundary.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeWeekly, TypeMonthly, TypeAllTime, TypeStreak:
		return Type(s), nil
	}
	return "", fmt.Errorf("invalid leaderboard type %q", s)
}

// ScoreColumn maps a leaderboard type to the players column it ranks by.
func (t Type) ScoreColumn() string {
	switch t {
	case TypeWeekly:
		return "weekly_xp"
	case TypeMonthly:
		return "monthly_xp"
	case TypeAllTime:
		return "lifetime_xp"
	case TypeStreak:
		return "current_streak"
	}
	return "lifetime_xp"
}

type Entry struct {
	Rank     int       `json:"rank"`
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	Score    int       `json:"score"`
	Level    int       `json:"level"`
	Title    string    `json:"title"`
}

// UserRank is the requester's own standing. Unlike Entry.Rank, which is
// positional within the returned page, this rank is count-based: all users
// tied on a score share the same number.
type UserRank struct {
	Rank  int `json:"rank"`
	Score int `json:"score"`
}

type Leaderboard struct {
	Entries      []*Entry  `json:"entries"`
	UserRank     *UserRank `json:"user_rank"`
	Type         Type      `json:"type"`
	TotalPlayers int       `json:"total_players"`
}

const (
	DefaultLimit = 100
	MaxLimit     = 500
)

// ClampLimit bounds a requested page size to 1..MaxLimit, substituting the
// default for zero or negative values.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// MostRecentMonday returns Monday 00:00 UTC of the week containing t.
// It stamps the start of the current weekly score window.
func MostRecentMonday(t time.Time) time.Time {
	t = t.UTC()
	daysSinceMonday := (int(t.Weekday()) + 6) % 7
	monday := t.AddDate(0, 0, -daysSinceMonday)
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, time.UTC)
}

// FirstOfMonth returns the first day of t's month at 00:00 UTC.
func FirstOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// countRank computes the count-based rank for a score against a set of
// competitor scores: one plus the number of strictly greater scores. The
// production self-rank query in services applies the same rule in SQL;
// this pure form exists to pin the tie semantics in tests.
func countRank(score int, all []int) int {
	rank := 1
	for _, s := range all {
		if s > score {
			rank++
		}
	}
	return rank
}
