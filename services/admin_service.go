package services

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type AdminService struct {
	db *pgxpool.Pool
}

func NewAdminService(db *pgxpool.Pool) *AdminService {
	return &AdminService{db: db}
}

type Analytics struct {
	TotalUsers        int              `json:"total_users"`
	TotalPlayers      int              `json:"total_players"`
	TotalPosts        int              `json:"total_posts"`
	ActiveToday       int              `json:"active_today"`
	LevelDistribution map[string]int   `json:"level_distribution"`
	TopTitles         []TitleCount     `json:"top_titles"`
	XPLeaders         []XPLeaderEntry  `json:"xp_leaders"`
	GeneratedAt       time.Time        `json:"generated_at"`
}

type TitleCount struct {
	Title string `json:"title"`
	Count int    `json:"count"`
}

type XPLeaderEntry struct {
	Username   string `json:"username"`
	Level      int    `json:"level"`
	LifetimeXP int    `json:"lifetime_xp"`
}

type AdminPlayerRow struct {
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	Level         int       `json:"level"`
	Title         string    `json:"title"`
	LifetimeXP    int       `json:"lifetime_xp"`
	CurrentStreak int       `json:"current_streak"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// GetAnalytics aggregates the dashboard numbers. Each block is a separate
// query; a slightly torn read across them is acceptable for a dashboard.
func (s *AdminService) GetAnalytics(ctx context.Context) (*Analytics, error) {
	a := &Analytics{
		LevelDistribution: map[string]int{},
		GeneratedAt:       time.Now().UTC(),
	}

	counts := `
	SELECT
		(SELECT COUNT(*) FROM users),
		(SELECT COUNT(*) FROM players),
		(SELECT COUNT(*) FROM posts),
		(SELECT COUNT(*) FROM players WHERE activity_data ? $1)
	`
	today := time.Now().UTC().Format("2006-01-02")
	err := s.db.QueryRow(ctx, counts, today).Scan(
		&a.TotalUsers, &a.TotalPlayers, &a.TotalPosts, &a.ActiveToday,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load counts: %w", err)
	}

	distQuery := `
	SELECT
		CASE
			WHEN level < 10 THEN '1-9'
			WHEN level < 20 THEN '10-19'
			WHEN level < 30 THEN '20-29'
			WHEN level < 40 THEN '30-39'
			WHEN level < 50 THEN '40-49'
			ELSE '50+'
		END AS bucket,
		COUNT(*)
	FROM players
	GROUP BY bucket
	`
	rows, err := s.db.Query(ctx, distQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to load level distribution: %w", err)
	}
	for rows.Next() {
		var bucket string
		var count int
		if err := rows.Scan(&bucket, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan level bucket: %w", err)
		}
		a.LevelDistribution[bucket] = count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	titleQuery := `
	SELECT title, COUNT(*)
	FROM players
	GROUP BY title
	ORDER BY COUNT(*) DESC
	LIMIT 10
	`
	rows, err = s.db.Query(ctx, titleQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to load title counts: %w", err)
	}
	for rows.Next() {
		var tc TitleCount
		if err := rows.Scan(&tc.Title, &tc.Count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan title count: %w", err)
		}
		a.TopTitles = append(a.TopTitles, tc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	leadersQuery := `
	SELECT u.username, p.level, p.lifetime_xp
	FROM players p
	INNER JOIN users u ON u.id = p.user_id
	ORDER BY p.lifetime_xp DESC
	LIMIT 10
	`
	rows, err = s.db.Query(ctx, leadersQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to load XP leaders: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var e XPLeaderEntry
		if err := rows.Scan(&e.Username, &e.Level, &e.LifetimeXP); err != nil {
			return nil, fmt.Errorf("failed to scan XP leader: %w", err)
		}
		a.XPLeaders = append(a.XPLeaders, e)
	}
	return a, rows.Err()
}

func (s *AdminService) ListPlayers(ctx context.Context, limit, skip int) ([]*AdminPlayerRow, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if skip < 0 {
		skip = 0
	}

	query := `
	SELECT u.username, u.email,
	       p.level, p.title,
	       p.lifetime_xp, p.current_streak, p.updated_at
	FROM players p
	INNER JOIN users u ON u.id = p.user_id
	ORDER BY p.updated_at DESC
	LIMIT $1 OFFSET $2
	`

	rows, err := s.db.Query(ctx, query, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	players := []*AdminPlayerRow{}
	for rows.Next() {
		row := &AdminPlayerRow{}
		err := rows.Scan(
			&row.Username, &row.Email, &row.Level, &row.Title,
			&row.LifetimeXP, &row.CurrentStreak, &row.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player row: %w", err)
		}
		players = append(players, row)
	}
	return players, rows.Err()
}
