package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soloProgressAPI/handlers"
	"soloProgressAPI/internal/progression"
	"soloProgressAPI/middleware"
	"soloProgressAPI/services"
	"soloProgressAPI/tests/helpers"
)

// TestFullPlayerFlow walks the happy path: sign-up webhook, activity
// save, stats recompute, leaderboard presence, account deletion.
func TestFullPlayerFlow(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	userService := services.NewUserService(pool)
	leaderboardService := services.NewLeaderboardService(pool)
	playerService := services.NewPlayerService(pool, leaderboardService, nil)

	userHandler := handlers.NewUserHandler(userService)
	playerHandler := handlers.NewPlayerHandler(playerService)
	webhookHandler := handlers.NewWebhookHandler(userService)

	os.Setenv("CLERK_WEBHOOK_SECRET", "")
	defer os.Unsetenv("CLERK_WEBHOOK_SECRET")

	clerkID := "user_test_" + time.Now().Format("20060102150405")

	t.Log("Step 1: User signs up via Clerk webhook")

	createPayload := helpers.MockClerkWebhookPayload("user.created", clerkID)
	req1 := httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewReader(createPayload))
	rr1 := httptest.NewRecorder()

	webhookHandler.HandleClerkWebhook(rr1, req1)
	assert.Equal(t, http.StatusOK, rr1.Code, "Webhook should succeed")

	ctx := context.Background()
	user, err := userService.GetUserByClerkID(ctx, clerkID)
	require.NoError(t, err)
	assert.Equal(t, "test.user@example.com", user.Email)
	assert.True(t, user.EmailVerified)

	t.Log("Step 2: Fresh player starts with default stats")

	data, err := playerService.GetData(ctx, clerkID)
	require.NoError(t, err)
	assert.Equal(t, 1, data.Stats.Level)
	assert.Equal(t, 0, data.Stats.TotalTasks)
	assert.Equal(t, progression.DefaultTitle, data.Stats.Title)

	t.Log("Step 3: Player logs two activities today")

	today := time.Now().UTC().Format("2006-01-02")
	activityLog := progression.ActivityLog{
		today: {"gym": true, "books:reading": true},
	}

	stats, err := playerService.SaveActivityData(ctx, clerkID, activityLog)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalTasks)
	assert.Equal(t, 20, stats.Experience)
	assert.Equal(t, 1, stats.Level)
	assert.Equal(t, 1, stats.CurrentStreak)

	t.Log("Step 4: XP shows up on the weekly leaderboard")

	board, err := leaderboardService.GetLeaderboard(ctx, "weekly", clerkID, 0)
	require.NoError(t, err)
	require.NotNil(t, board.UserRank)
	assert.Equal(t, 20, board.UserRank.Score)

	t.Log("Step 5: Toggling an activity off recomputes stats")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/player/toggle",
		strings.NewReader(`{"date": "`+today+`", "activity_id": "gym"}`))
	req.Header.Set("Content-Type", "application/json")
	reqCtx := context.WithValue(req.Context(), middleware.ClerkIDKey, clerkID)
	req = req.WithContext(reqCtx)
	rr := httptest.NewRecorder()

	playerHandler.ToggleActivity(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	var toggled progression.Stats
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &toggled))
	assert.Equal(t, 1, toggled.TotalTasks)

	t.Log("Step 6: User deletes account")

	reqDel := httptest.NewRequest(http.MethodDelete, "/api/v1/user/delete-account", nil)
	delCtx := context.WithValue(reqDel.Context(), middleware.ClerkIDKey, clerkID)
	reqDel = reqDel.WithContext(delCtx)
	rrDel := httptest.NewRecorder()

	userHandler.DeleteAccount(rrDel, reqDel)
	assert.Equal(t, http.StatusOK, rrDel.Code)

	_, err = userService.GetUserByClerkID(ctx, clerkID)
	assert.Error(t, err, "User should be gone after deletion")
}
