package utils

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"soloProgressAPI/internal/notification"
)

// NotificationCreator is the one method of the notification service the
// fanout needs.
type NotificationCreator interface {
	Create(ctx context.Context, req *notification.CreateRequest) (*notification.Notification, error)
}

// CommentThreadFanout notifies everyone involved in a post when a new
// comment lands: the post owner plus every earlier commenter, minus the
// actor. Runs on a background context; callers fire it in a goroutine.
func CommentThreadFanout(db *pgxpool.Pool, notifier NotificationCreator, postID, actorID uuid.UUID, actorName string) {
	bgCtx := context.Background()

	query := `
		SELECT user_id FROM posts WHERE id = $1
		UNION
		SELECT DISTINCT user_id FROM post_comments WHERE post_id = $1
	`

	rows, err := db.Query(bgCtx, query, postID)
	if err != nil {
		log.Printf("Failed to get thread participants for notification: %v", err)
		return
	}
	defer rows.Close()

	var recipients []uuid.UUID
	for rows.Next() {
		var participantID uuid.UUID
		if err := rows.Scan(&participantID); err != nil {
			continue
		}
		if participantID == actorID {
			continue
		}
		recipients = append(recipients, participantID)
	}

	for _, recipientID := range recipients {
		req := &notification.CreateRequest{
			UserID: recipientID,
			Type:   notification.TypePostComment,
			Title:  "New comment",
			Body:   fmt.Sprintf("%s commented on a post you follow", actorName),
			Data: map[string]any{
				"postId":   postID.String(),
				"username": actorName,
			},
		}

		if _, err := notifier.Create(bgCtx, req); err != nil {
			log.Printf("Failed to create comment notification for %s: %v", recipientID, err)
		}
	}
}
