package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"soloProgressAPI/internal/player"
	"soloProgressAPI/internal/progression"
)

// GetConfig returns the player's activity definitions, falling back to
// the built-in defaults while the player has not customized anything.
func (s *PlayerService) GetConfig(ctx context.Context, clerkID string) (*player.Config, error) {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	var rawActivities []byte
	var customized bool
	err = s.db.QueryRow(ctx,
		`SELECT activities, customized FROM player_settings WHERE user_id = $1`,
		userID,
	).Scan(&rawActivities, &customized)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &player.Config{Activities: progression.DefaultActivities(), Customized: false}, nil
		}
		return nil, fmt.Errorf("failed to get config: %w", err)
	}

	var activities []progression.Activity
	if err := json.Unmarshal(rawActivities, &activities); err != nil {
		return nil, fmt.Errorf("failed to decode activity config: %w", err)
	}

	return &player.Config{Activities: activities, Customized: customized}, nil
}

// SaveConfig replaces the player's activity definitions.
func (s *PlayerService) SaveConfig(ctx context.Context, clerkID string, activities []progression.Activity) (*player.Config, error) {
	if err := validateActivities(activities); err != nil {
		return nil, err
	}

	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	rawActivities, err := json.Marshal(activities)
	if err != nil {
		return nil, fmt.Errorf("failed to encode activity config: %w", err)
	}

	query := `
	INSERT INTO player_settings (user_id, activities, customized, updated_at)
	VALUES ($1, $2, true, NOW())
	ON CONFLICT (user_id)
	DO UPDATE SET activities = $2, customized = true, updated_at = NOW()
	`

	if _, err := s.db.Exec(ctx, query, userID, rawActivities); err != nil {
		return nil, fmt.Errorf("failed to save config: %w", err)
	}

	return &player.Config{Activities: activities, Customized: true}, nil
}

// ResetConfig drops customization and returns the built-in defaults. The
// activity log itself is left untouched.
func (s *PlayerService) ResetConfig(ctx context.Context, clerkID string) (*player.Config, error) {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	if _, err := s.db.Exec(ctx, `DELETE FROM player_settings WHERE user_id = $1`, userID); err != nil {
		return nil, fmt.Errorf("failed to reset config: %w", err)
	}

	return &player.Config{Activities: progression.DefaultActivities(), Customized: false}, nil
}

func validateActivities(activities []progression.Activity) error {
	if len(activities) == 0 {
		return fmt.Errorf("at least one activity is required")
	}

	seen := make(map[string]bool)
	for _, a := range activities {
		if a.ID == "" || a.Name == "" {
			return fmt.Errorf("activity id and name are required")
		}
		if strings.Contains(a.ID, progression.SubGoalSeparator) {
			return fmt.Errorf("activity id %q must not contain %q", a.ID, progression.SubGoalSeparator)
		}
		if seen[a.ID] {
			return fmt.Errorf("duplicate activity id %q", a.ID)
		}
		seen[a.ID] = true

		subSeen := make(map[string]bool)
		for _, sg := range a.SubGoals {
			if sg.ID == "" || sg.Name == "" {
				return fmt.Errorf("sub-goal id and name are required for activity %q", a.ID)
			}
			if strings.Contains(sg.ID, progression.SubGoalSeparator) {
				return fmt.Errorf("sub-goal id %q must not contain %q", sg.ID, progression.SubGoalSeparator)
			}
			if subSeen[sg.ID] {
				return fmt.Errorf("duplicate sub-goal id %q in activity %q", sg.ID, a.ID)
			}
			subSeen[sg.ID] = true
		}
	}
	return nil
}
