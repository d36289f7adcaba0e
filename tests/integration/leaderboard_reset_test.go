package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soloProgressAPI/internal/leaderboard"
	"soloProgressAPI/internal/user"
	"soloProgressAPI/services"
	"soloProgressAPI/tests/helpers"
)

// TestWeeklyResetStalenessGuard verifies that the weekly reset only
// touches players whose week_start predates the current window: a stale
// counter is zeroed and restamped, while XP earned inside the current
// window survives a repeated fire.
func TestWeeklyResetStalenessGuard(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	userService := services.NewUserService(pool)
	leaderboardService := services.NewLeaderboardService(pool)

	ctx := context.Background()
	clerkID := "user_reset_" + time.Now().Format("20060102150405")

	u, err := userService.CreateUser(ctx, &user.CreateUserRequest{
		ClerkID:  clerkID,
		Email:    "test.reset@example.com",
		Username: "resetuser",
	})
	require.NoError(t, err)

	// Backdate the player into the previous window with a live counter.
	staleStart := leaderboard.MostRecentMonday(time.Now().UTC()).AddDate(0, 0, -7)
	_, err = pool.Exec(ctx,
		`UPDATE players SET weekly_xp = 120, week_start = $1 WHERE user_id = $2`,
		staleStart, u.ID)
	require.NoError(t, err)

	require.NoError(t, leaderboardService.ResetWeeklyXP(ctx))

	var weeklyXP int
	var weekStart time.Time
	err = pool.QueryRow(ctx,
		`SELECT weekly_xp, week_start FROM players WHERE user_id = $1`,
		u.ID).Scan(&weeklyXP, &weekStart)
	require.NoError(t, err)

	currentStart := leaderboard.MostRecentMonday(time.Now().UTC())
	assert.Equal(t, 0, weeklyXP, "stale counter should be zeroed")
	assert.True(t, weekStart.UTC().Equal(currentStart), "week_start should be restamped to the current window")

	// XP accrued after the boundary must survive a second fire.
	_, err = pool.Exec(ctx,
		`UPDATE players SET weekly_xp = 40 WHERE user_id = $1`, u.ID)
	require.NoError(t, err)

	require.NoError(t, leaderboardService.ResetWeeklyXP(ctx))

	err = pool.QueryRow(ctx,
		`SELECT weekly_xp FROM players WHERE user_id = $1`, u.ID).Scan(&weeklyXP)
	require.NoError(t, err)
	assert.Equal(t, 40, weeklyXP, "a repeated fire inside the same window must not wipe new XP")
}

// TestMonthlyResetStalenessGuard covers the same rule for the monthly
// window.
func TestMonthlyResetStalenessGuard(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	userService := services.NewUserService(pool)
	leaderboardService := services.NewLeaderboardService(pool)

	ctx := context.Background()
	clerkID := "user_mreset_" + time.Now().Format("20060102150405")

	u, err := userService.CreateUser(ctx, &user.CreateUserRequest{
		ClerkID:  clerkID,
		Email:    "test.mreset@example.com",
		Username: "mresetuser",
	})
	require.NoError(t, err)

	staleStart := leaderboard.FirstOfMonth(time.Now().UTC()).AddDate(0, -1, 0)
	_, err = pool.Exec(ctx,
		`UPDATE players SET monthly_xp = 300, month_start = $1 WHERE user_id = $2`,
		staleStart, u.ID)
	require.NoError(t, err)

	require.NoError(t, leaderboardService.ResetMonthlyXP(ctx))

	var monthlyXP int
	var monthStart time.Time
	err = pool.QueryRow(ctx,
		`SELECT monthly_xp, month_start FROM players WHERE user_id = $1`,
		u.ID).Scan(&monthlyXP, &monthStart)
	require.NoError(t, err)

	assert.Equal(t, 0, monthlyXP)
	assert.True(t, monthStart.UTC().Equal(leaderboard.FirstOfMonth(time.Now().UTC())))

	_, err = pool.Exec(ctx,
		`UPDATE players SET monthly_xp = 70 WHERE user_id = $1`, u.ID)
	require.NoError(t, err)

	require.NoError(t, leaderboardService.ResetMonthlyXP(ctx))

	err = pool.QueryRow(ctx,
		`SELECT monthly_xp FROM players WHERE user_id = $1`, u.ID).Scan(&monthlyXP)
	require.NoError(t, err)
	assert.Equal(t, 70, monthlyXP)
}
