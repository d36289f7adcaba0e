package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"soloProgressAPI/internal/leaderboard"
)

type LeaderboardService struct {
	db  *pgxpool.Pool
	now func() time.Time
}

func NewLeaderboardService(db *pgxpool.Pool) *LeaderboardService {
	return &LeaderboardService{db: db, now: time.Now}
}

// GetLeaderboard returns the top players for a score window plus the
// requester's own standing. The entry ranks are positional within the
// page; the requester rank is count-based (1 + number of strictly higher
// scores), so tied players all see the same self rank. The two
// definitions intentionally disagree on ties.
func (s *LeaderboardService) GetLeaderboard(ctx context.Context, typ leaderboard.Type, requesterClerkID string, limit int) (*leaderboard.Leaderboard, error) {
	limit = leaderboard.ClampLimit(limit)
	column := typ.ScoreColumn()

	query := fmt.Sprintf(`
	SELECT p.user_id, u.username, p.%s AS score, p.level, p.title
	FROM players p
	INNER JOIN users u ON u.id = p.user_id
	ORDER BY p.%s DESC
	LIMIT $1
	`, column, column)

	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []*leaderboard.Entry
	for rows.Next() {
		entry := &leaderboard.Entry{}
		err := rows.Scan(
			&entry.UserID,
			&entry.Username,
			&entry.Score,
			&entry.Level,
			&entry.Title,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		entry.Rank = len(entries) + 1
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leaderboard rows: %w", err)
	}

	var totalPlayers int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM players`).Scan(&totalPlayers); err != nil {
		return nil, fmt.Errorf("failed to count players: %w", err)
	}

	var userRank *leaderboard.UserRank
	if requesterClerkID != "" {
		userRank, err = s.requesterRank(ctx, typ, requesterClerkID)
		if err != nil {
			return nil, err
		}
	}

	return &leaderboard.Leaderboard{
		Entries:      entries,
		UserRank:     userRank,
		Type:         typ,
		TotalPlayers: totalPlayers,
	}, nil
}

// requesterRank computes the count-based self rank in SQL: one plus the
// number of strictly greater scores. internal/leaderboard unit-tests the
// same rule in pure form. A requester with no player record yet gets a
// nil rank, not an error.
func (s *LeaderboardService) requesterRank(ctx context.Context, typ leaderboard.Type, clerkID string) (*leaderboard.UserRank, error) {
	column := typ.ScoreColumn()

	var score int
	query := fmt.Sprintf(`
	SELECT p.%s
	FROM players p
	INNER JOIN users u ON u.id = p.user_id
	WHERE u.clerk_id = $1
	`, column)

	err := s.db.QueryRow(ctx, query, clerkID).Scan(&score)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get requester score: %w", err)
	}

	var higher int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM players WHERE %s > $1`, column)
	if err := s.db.QueryRow(ctx, countQuery, score).Scan(&higher); err != nil {
		return nil, fmt.Errorf("failed to compute requester rank: %w", err)
	}

	return &leaderboard.UserRank{Rank: higher + 1, Score: score}, nil
}

// ApplyXPDelta adds gained XP to the weekly, monthly and lifetime
// counters in a single atomic increment. Zero and negative deltas are
// applied as-is. The stats-level experience field is not touched here:
// the save path rewrites it from the full recompute in the same request.
func (s *LeaderboardService) ApplyXPDelta(ctx context.Context, userID uuid.UUID, xpGained int) error {
	query := `
	UPDATE players
	SET weekly_xp = weekly_xp + $2,
		monthly_xp = monthly_xp + $2,
		lifetime_xp = lifetime_xp + $2
	WHERE user_id = $1
	`

	result, err := s.db.Exec(ctx, query, userID, xpGained)
	if err != nil {
		return fmt.Errorf("failed to apply xp delta: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("no player record for user %s", userID)
	}
	return nil
}

// ResetWeeklyXP zeroes the weekly counter of every player whose stored
// week_start predates the current window (most recent Monday 00:00 UTC)
// and stamps the new window start. Players already stamped with the
// current window are skipped, so a double fire is a true no-op and
// never wipes XP earned after the boundary.
func (s *LeaderboardService) ResetWeeklyXP(ctx context.Context) error {
	weekStart := leaderboard.MostRecentMonday(s.now())

	result, err := s.db.Exec(ctx,
		`UPDATE players SET weekly_xp = 0, week_start = $1 WHERE week_start IS DISTINCT FROM $1`,
		weekStart)
	if err != nil {
		return fmt.Errorf("failed to reset weekly xp: %w", err)
	}

	log.Printf("Weekly XP reset: %d players, window start %s",
		result.RowsAffected(), weekStart.Format(time.RFC3339))
	return nil
}

// ResetMonthlyXP zeroes the monthly counter of every player whose stored
// month_start predates the current window (first of the month 00:00 UTC)
// and stamps the new window start. Same staleness rule as ResetWeeklyXP.
func (s *LeaderboardService) ResetMonthlyXP(ctx context.Context) error {
	monthStart := leaderboard.FirstOfMonth(s.now())

	result, err := s.db.Exec(ctx,
		`UPDATE players SET monthly_xp = 0, month_start = $1 WHERE month_start IS DISTINCT FROM $1`,
		monthStart)
	if err != nil {
		return fmt.Errorf("failed to reset monthly xp: %w", err)
	}

	log.Printf("Monthly XP reset: %d players, window start %s",
		result.RowsAffected(), monthStart.Format(time.RFC3339))
	return nil
}
