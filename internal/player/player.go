package player

import (
	"soloProgressAPI/internal/progression"
)

// Data is the activity payload returned to the client for the tracker
// view. The stats are derived in full from the activity log on every
// save; the leaderboard XP counters live in their own columns and are
// maintained incrementally.
type Data struct {
	ActivityData progression.ActivityLog `json:"activity_data"`
	Stats        progression.Stats       `json:"user_stats"`
}

type SaveActivityRequest struct {
	ActivityData progression.ActivityLog `json:"activity_data"`
}

type ToggleRequest struct {
	Date       string `json:"date"`
	ActivityID string `json:"activity_id"`
}

type NotesRequest struct {
	Date  string `json:"date"`
	Notes string `json:"notes"`
}

// Config is a player's activity definition set. Customized is false while
// the player is still on the built-in defaults.
type Config struct {
	Activities []progression.Activity `json:"activities"`
	Customized bool                   `json:"customized"`
}
