package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"soloProgressAPI/internal/post"
	"soloProgressAPI/internal/progression"
	"soloProgressAPI/utils"
)

type PostService struct {
	db       *pgxpool.Pool
	notifier NotificationCreator
}

func NewPostService(db *pgxpool.Pool, notifier NotificationCreator) *PostService {
	return &PostService{db: db, notifier: notifier}
}

func (s *PostService) resolveUserID(ctx context.Context, clerkID string) (uuid.UUID, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("user not found: %w", err)
	}
	return userID, nil
}

// CreatePost publishes a post with the author's current level and title
// snapshotted onto it. Enforces the per-day post limit and content length.
func (s *PostService) CreatePost(ctx context.Context, clerkID string, req *post.CreatePostRequest) (*post.Post, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, fmt.Errorf("post content is required")
	}
	if utf8.RuneCountInString(content) > post.MaxContentLength {
		return nil, fmt.Errorf("post content exceeds %d characters", post.MaxContentLength)
	}

	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	var todayCount int
	err = s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM posts WHERE user_id = $1 AND created_at >= date_trunc('day', NOW() AT TIME ZONE 'UTC')`,
		userID).Scan(&todayCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count today's posts: %w", err)
	}
	if todayCount >= post.DailyLimit {
		return nil, fmt.Errorf("daily post limit of %d reached", post.DailyLimit)
	}

	// Snapshot the author's progression at posting time. The feed shows
	// the level the author had when they posted, not their live level.
	level := 1
	title := progression.DefaultTitle
	err = s.db.QueryRow(ctx,
		`SELECT level, title FROM players WHERE user_id = $1`,
		userID).Scan(&level, &title)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to load player stats: %w", err)
	}

	query := `
	INSERT INTO posts (id, user_id, content, image_url, user_level, user_title, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, NOW())
	RETURNING id, user_id, content, image_url, user_level, user_title, created_at
	`

	p := &post.Post{}
	err = s.db.QueryRow(ctx, query, uuid.New(), userID, content, req.ImageURL, level, title).Scan(
		&p.ID, &p.UserID, &p.Content, &p.ImageURL, &p.UserLevel, &p.UserTitle, &p.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	s.attachAuthor(ctx, p)
	return p, nil
}

func (s *PostService) attachAuthor(ctx context.Context, p *post.Post) {
	err := s.db.QueryRow(ctx,
		`SELECT username, COALESCE(image_url, '') FROM users WHERE id = $1`,
		p.UserID).Scan(&p.Username, &p.AvatarURL)
	if err != nil {
		log.Printf("Failed to load author for post %s: %v", p.ID, err)
	}
}

// GetFeed returns posts newest-first with like/comment counts and whether
// the requesting user liked each post.
func (s *PostService) GetFeed(ctx context.Context, clerkID string, limit, skip int) (*post.Feed, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	if skip < 0 {
		skip = 0
	}

	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	var total int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM posts`).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count posts: %w", err)
	}

	query := `
	SELECT p.id, p.user_id, u.username, COALESCE(u.image_url, ''),
	       p.content, p.image_url, p.user_level, p.user_title, p.created_at,
	       (SELECT COUNT(*) FROM post_likes pl WHERE pl.post_id = p.id) AS like_count,
	       (SELECT COUNT(*) FROM post_comments pc WHERE pc.post_id = p.id) AS comment_count,
	       EXISTS(SELECT 1 FROM post_likes pl WHERE pl.post_id = p.id AND pl.user_id = $1) AS liked_by_me
	FROM posts p
	INNER JOIN users u ON u.id = p.user_id
	ORDER BY p.created_at DESC
	LIMIT $2 OFFSET $3
	`

	rows, err := s.db.Query(ctx, query, userID, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer rows.Close()

	posts := []*post.Post{}
	for rows.Next() {
		p := &post.Post{}
		err := rows.Scan(
			&p.ID, &p.UserID, &p.Username, &p.AvatarURL,
			&p.Content, &p.ImageURL, &p.UserLevel, &p.UserTitle, &p.CreatedAt,
			&p.LikeCount, &p.CommentCount, &p.LikedByMe,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &post.Feed{
		Posts:   posts,
		Total:   total,
		HasMore: skip+len(posts) < total,
	}, nil
}

// ToggleLike likes the post if the user hasn't, unlikes it otherwise.
func (s *PostService) ToggleLike(ctx context.Context, clerkID string, postID uuid.UUID) (*post.LikeResult, error) {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	var exists bool
	err = s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM posts WHERE id = $1)`, postID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check post: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("post not found")
	}

	result, err := s.db.Exec(ctx,
		`DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2`, postID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to toggle like: %w", err)
	}

	liked := false
	if result.RowsAffected() == 0 {
		_, err = s.db.Exec(ctx,
			`INSERT INTO post_likes (post_id, user_id, created_at) VALUES ($1, $2, NOW())
			 ON CONFLICT (post_id, user_id) DO NOTHING`,
			postID, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to like post: %w", err)
		}
		liked = true
	}

	var count int
	err = s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM post_likes WHERE post_id = $1`, postID).Scan(&count)
	if err != nil {
		return nil, fmt.Errorf("failed to count likes: %w", err)
	}

	return &post.LikeResult{Liked: liked, LikeCount: count}, nil
}

// AddComment attaches a comment to a post and notifies the post owner,
// unless they commented on their own post.
func (s *PostService) AddComment(ctx context.Context, clerkID string, postID uuid.UUID, req *post.CreateCommentRequest) (*post.Comment, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, fmt.Errorf("comment content is required")
	}
	if utf8.RuneCountInString(content) > post.MaxCommentLength {
		return nil, fmt.Errorf("comment exceeds %d characters", post.MaxCommentLength)
	}

	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	var exists bool
	err = s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM posts WHERE id = $1)`, postID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check post: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("post not found")
	}

	query := `
	INSERT INTO post_comments (id, post_id, user_id, content, created_at)
	VALUES ($1, $2, $3, $4, NOW())
	RETURNING id, post_id, user_id, content, created_at
	`

	c := &post.Comment{}
	err = s.db.QueryRow(ctx, query, uuid.New(), postID, userID, content).Scan(
		&c.ID, &c.PostID, &c.UserID, &c.Content, &c.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	err = s.db.QueryRow(ctx,
		`SELECT username, COALESCE(image_url, '') FROM users WHERE id = $1`,
		userID).Scan(&c.Username, &c.AvatarURL)
	if err != nil {
		log.Printf("Failed to load commenter profile: %v", err)
	}

	if s.notifier != nil {
		go utils.CommentThreadFanout(s.db, s.notifier, postID, userID, c.Username)
	}

	return c, nil
}

func (s *PostService) GetComments(ctx context.Context, postID uuid.UUID, limit, skip int) ([]*post.Comment, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if skip < 0 {
		skip = 0
	}

	query := `
	SELECT c.id, c.post_id, c.user_id, u.username, COALESCE(u.image_url, ''),
	       c.content, c.created_at
	FROM post_comments c
	INNER JOIN users u ON u.id = c.user_id
	WHERE c.post_id = $1
	ORDER BY c.created_at ASC
	LIMIT $2 OFFSET $3
	`

	rows, err := s.db.Query(ctx, query, postID, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch comments: %w", err)
	}
	defer rows.Close()

	comments := []*post.Comment{}
	for rows.Next() {
		c := &post.Comment{}
		err := rows.Scan(&c.ID, &c.PostID, &c.UserID, &c.Username, &c.AvatarURL, &c.Content, &c.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// DeletePost removes one of the caller's own posts along with its likes
// and comments (cascade).
func (s *PostService) DeletePost(ctx context.Context, clerkID string, postID uuid.UUID) error {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return err
	}

	result, err := s.db.Exec(ctx,
		`DELETE FROM posts WHERE id = $1 AND user_id = $2`, postID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("post not found or not owned by user")
	}
	return nil
}
