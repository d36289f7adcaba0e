package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"soloProgressAPI/internal/leaderboard"
	"soloProgressAPI/internal/notification"
	"soloProgressAPI/internal/player"
	"soloProgressAPI/internal/progression"
)

// streakMilestones are the streak lengths worth a push notification.
var streakMilestones = map[int]bool{7: true, 30: true, 100: true, 365: true}

// NotificationCreator is the slice of the notification service the save
// path needs. Keeping it an interface avoids a construction-order knot in
// main.go and keeps unit tests off the dispatcher.
type NotificationCreator interface {
	Create(ctx context.Context, req *notification.CreateRequest) (*notification.Notification, error)
}

type PlayerService struct {
	db          *pgxpool.Pool
	leaderboard *LeaderboardService
	notifier    NotificationCreator
}

func NewPlayerService(db *pgxpool.Pool, lb *LeaderboardService, notifier NotificationCreator) *PlayerService {
	return &PlayerService{
		db:          db,
		leaderboard: lb,
		notifier:    notifier,
	}
}

func (s *PlayerService) resolveUserID(ctx context.Context, clerkID string) (uuid.UUID, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("user not found: %w", err)
	}
	return userID, nil
}

// GetData returns the player's activity log and derived stats,
// substituting zero-progress defaults when no record exists yet.
func (s *PlayerService) GetData(ctx context.Context, clerkID string) (*player.Data, error) {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	query := `
	SELECT activity_data, level, experience, total_tasks, current_streak, title
	FROM players
	WHERE user_id = $1
	`

	var rawLog []byte
	stats := progression.Stats{}
	err = s.db.QueryRow(ctx, query, userID).Scan(
		&rawLog,
		&stats.Level,
		&stats.Experience,
		&stats.TotalTasks,
		&stats.CurrentStreak,
		&stats.Title,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &player.Data{
				ActivityData: progression.ActivityLog{},
				Stats:        progression.DefaultStats(),
			}, nil
		}
		return nil, fmt.Errorf("failed to get player data: %w", err)
	}

	activityLog := progression.ActivityLog{}
	if len(rawLog) > 0 {
		if err := json.Unmarshal(rawLog, &activityLog); err != nil {
			return nil, fmt.Errorf("failed to decode activity data: %w", err)
		}
	}

	return &player.Data{ActivityData: activityLog, Stats: stats}, nil
}

// SaveActivityData persists a full activity log, recomputes the player's
// stats from scratch and forwards any positive XP delta to the
// leaderboard counters. The delta is keyed on total task growth, not on
// the stored experience field: experience resets to the leftover at each
// level-up, so a diff of that field would drop the XP spent crossing
// levels. The fresh stats are returned for immediate UI feedback.
func (s *PlayerService) SaveActivityData(ctx context.Context, clerkID string, activityLog progression.ActivityLog) (*progression.Stats, error) {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	config, err := s.GetConfig(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	oldStats := progression.DefaultStats()
	err = s.db.QueryRow(ctx,
		`SELECT level, total_tasks, current_streak FROM players WHERE user_id = $1`,
		userID,
	).Scan(&oldStats.Level, &oldStats.TotalTasks, &oldStats.CurrentStreak)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to load previous stats: %w", err)
	}

	if activityLog == nil {
		activityLog = progression.ActivityLog{}
	}
	newStats := progression.CalculateStats(activityLog, config.Activities)

	rawLog, err := json.Marshal(activityLog)
	if err != nil {
		return nil, fmt.Errorf("failed to encode activity data: %w", err)
	}

	now := time.Now().UTC()
	query := `
	INSERT INTO players (user_id, activity_data, level, experience, total_tasks, current_streak, title,
		lifetime_xp, weekly_xp, monthly_xp, week_start, month_start, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, 0, 0, 0, $8, $9, NOW())
	ON CONFLICT (user_id)
	DO UPDATE SET
		activity_data = $2,
		level = $3,
		experience = $4,
		total_tasks = $5,
		current_streak = $6,
		title = $7,
		updated_at = NOW()
	`

	_, err = s.db.Exec(ctx, query, userID, rawLog,
		newStats.Level, newStats.Experience, newStats.TotalTasks, newStats.CurrentStreak, newStats.Title,
		leaderboard.MostRecentMonday(now), leaderboard.FirstOfMonth(now))
	if err != nil {
		return nil, fmt.Errorf("failed to save activity data: %w", err)
	}

	xpGained := XPDelta(oldStats.TotalTasks, newStats.TotalTasks)
	if xpGained > 0 {
		if err := s.leaderboard.ApplyXPDelta(ctx, userID, xpGained); err != nil {
			// Counters drift until the next positive delta; the save
			// itself already succeeded.
			log.Printf("Failed to apply XP delta for user %s: %v", userID, err)
		}
	}

	s.notifyProgress(userID, oldStats, newStats)

	return &newStats, nil
}

// ToggleActivity flips one completion flag and runs the standard save
// path, so stats and counters stay consistent with bulk saves.
func (s *PlayerService) ToggleActivity(ctx context.Context, clerkID string, date string, activityID string) (*progression.Stats, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, fmt.Errorf("invalid date %q", date)
	}
	if activityID == "" || activityID == progression.NotesKey {
		return nil, fmt.Errorf("invalid activity id %q", activityID)
	}

	data, err := s.GetData(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	activityLog := data.ActivityData
	day, ok := activityLog[date]
	if !ok {
		day = progression.DayRecord{}
		activityLog[date] = day
	}
	current, _ := day[activityID].(bool)
	day[activityID] = !current

	return s.SaveActivityData(ctx, clerkID, activityLog)
}

// SaveNotes stores the free-text journal entry for a day. Notes never
// affect stats, so no recompute happens here.
func (s *PlayerService) SaveNotes(ctx context.Context, clerkID string, date string, notes string) error {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return fmt.Errorf("invalid date %q", date)
	}

	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return err
	}

	data, err := s.GetData(ctx, clerkID)
	if err != nil {
		return err
	}

	activityLog := data.ActivityData
	day, ok := activityLog[date]
	if !ok {
		day = progression.DayRecord{}
		activityLog[date] = day
	}
	day[progression.NotesKey] = notes

	rawLog, err := json.Marshal(activityLog)
	if err != nil {
		return fmt.Errorf("failed to encode activity data: %w", err)
	}

	_, err = s.db.Exec(ctx,
		`UPDATE players SET activity_data = $2, updated_at = NOW() WHERE user_id = $1`,
		userID, rawLog)
	if err != nil {
		return fmt.Errorf("failed to save notes: %w", err)
	}
	return nil
}

// GetHistory returns the slice of the activity log between two dates
// (inclusive) for the journal view.
func (s *PlayerService) GetHistory(ctx context.Context, clerkID string, from, to string) (progression.ActivityLog, error) {
	if _, err := time.Parse("2006-01-02", from); err != nil {
		return nil, fmt.Errorf("invalid from date %q", from)
	}
	if _, err := time.Parse("2006-01-02", to); err != nil {
		return nil, fmt.Errorf("invalid to date %q", to)
	}

	data, err := s.GetData(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	window := progression.ActivityLog{}
	for date, day := range data.ActivityData {
		if date >= from && date <= to {
			window[date] = day
		}
	}
	return window, nil
}

// notifyProgress fires streak-milestone and level-up notifications after
// a save. Notification failures never fail the save.
func (s *PlayerService) notifyProgress(userID uuid.UUID, oldStats, newStats progression.Stats) {
	if s.notifier == nil {
		return
	}

	bgCtx := context.Background()

	if newStats.CurrentStreak > oldStats.CurrentStreak && streakMilestones[newStats.CurrentStreak] {
		_, err := s.notifier.Create(bgCtx, &notification.CreateRequest{
			UserID: userID,
			Type:   notification.TypeStreakMilestone,
			Title:  fmt.Sprintf("%d-day streak!", newStats.CurrentStreak),
			Body:   fmt.Sprintf("You have trained %d days in a row. Keep the chain alive.", newStats.CurrentStreak),
			Data:   map[string]any{"streak": newStats.CurrentStreak},
		})
		if err != nil {
			log.Printf("Failed to create streak milestone notification for %s: %v", userID, err)
		}
	}

	if newStats.Level > oldStats.Level {
		_, err := s.notifier.Create(bgCtx, &notification.CreateRequest{
			UserID: userID,
			Type:   notification.TypeLevelUp,
			Title:  fmt.Sprintf("Level %d reached", newStats.Level),
			Body:   fmt.Sprintf("You are now a %s.", newStats.Title),
			Data:   map[string]any{"level": newStats.Level, "title": newStats.Title},
		})
		if err != nil {
			log.Printf("Failed to create level up notification for %s: %v", userID, err)
		}
	}
}

// XPDelta converts a change in completed task count to an XP delta. A
// negative result (tasks unchecked) is reported as-is; callers decide
// whether to forward it.
func XPDelta(oldTotalTasks, newTotalTasks int) int {
	return (newTotalTasks - oldTotalTasks) * progression.XPPerTask
}
