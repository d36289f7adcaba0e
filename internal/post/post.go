package post

import (
	"time"

	"github.com/google/uuid"
)

const (
	// DailyLimit caps posts per user per UTC day.
	DailyLimit = 15

	MaxContentLength = 1000
	MaxCommentLength = 500
)

// Post is a feed entry. Level and title are snapshots of the author's
// progression at post time; they are not updated retroactively.
type Post struct {
	ID           uuid.UUID `json:"id" db:"id"`
	UserID       uuid.UUID `json:"user_id" db:"user_id"`
	Username     string    `json:"username" db:"username"`
	AvatarURL    string    `json:"avatar_url" db:"image_url"`
	UserLevel    int       `json:"user_level" db:"user_level"`
	UserTitle    string    `json:"user_title" db:"user_title"`
	Content      string    `json:"content" db:"content"`
	ImageURL     *string   `json:"image_url" db:"image_url"`
	LikeCount    int       `json:"like_count"`
	CommentCount int       `json:"comment_count"`
	LikedByMe    bool      `json:"liked_by_me"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type Comment struct {
	ID        uuid.UUID `json:"id" db:"id"`
	PostID    uuid.UUID `json:"post_id" db:"post_id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Username  string    `json:"username" db:"username"`
	AvatarURL string    `json:"avatar_url" db:"image_url"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type CreatePostRequest struct {
	Content  string  `json:"content"`
	ImageURL *string `json:"image_url"`
}

type CreateCommentRequest struct {
	Content string `json:"content"`
}

type Feed struct {
	Posts   []*Post `json:"posts"`
	Total   int     `json:"total"`
	HasMore bool    `json:"has_more"`
}

type LikeResult struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}
