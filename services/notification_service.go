package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"soloProgressAPI/internal/notification"
)

// PushProvider delivers a push message to a set of device tokens. The FCM
// client implements it; tests inject fakes.
type PushProvider interface {
	SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error
}

type dispatchJob struct {
	notif *notification.Notification
}

type NotificationService struct {
	db           *pgxpool.Pool
	pushProvider PushProvider

	workers  int
	jobQueue chan *dispatchJob
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewNotificationService(db *pgxpool.Pool) *NotificationService {
	s := &NotificationService{
		db:       db,
		workers:  5,
		jobQueue: make(chan *dispatchJob, 100),
		stopChan: make(chan struct{}),
	}
	s.startWorkers()
	return s
}

// SetPushProvider injects the real FCM provider from main.go. Without a
// provider notifications are stored but never pushed.
func (s *NotificationService) SetPushProvider(provider PushProvider) {
	s.pushProvider = provider
}

func (s *NotificationService) startWorkers() {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
}

func (s *NotificationService) worker() {
	defer s.wg.Done()
	for {
		select {
		case job := <-s.jobQueue:
			s.processJob(job)
		case <-s.stopChan:
			return
		}
	}
}

// Stop shuts the worker pool down. Queued jobs that have not started are
// dropped; their notifications stay pending in the database.
func (s *NotificationService) Stop() {
	close(s.stopChan)
	s.wg.Wait()
}

func (s *NotificationService) processJob(job *dispatchJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	notif := job.notif

	if s.pushProvider != nil {
		tokens, err := s.deviceTokens(ctx, notif.UserID)
		if err != nil {
			log.Printf("Failed to load device tokens for user %s: %v", notif.UserID, err)
			s.markStatus(ctx, notif.ID, notification.StatusFailed)
			return
		}

		if len(tokens) > 0 {
			if err := s.pushProvider.SendPush(ctx, tokens, notif.Title, notif.Body, notif.Data); err != nil {
				log.Printf("Push failed for user %s: %v", notif.UserID, err)
				s.markStatus(ctx, notif.ID, notification.StatusFailed)
				return
			}
		}
	}

	s.markStatus(ctx, notif.ID, notification.StatusSent)
}

func (s *NotificationService) markStatus(ctx context.Context, id uuid.UUID, status notification.Status) {
	_, err := s.db.Exec(ctx, `UPDATE notifications SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		log.Printf("Failed to mark notification %s as %s: %v", id, status, err)
	}
}

// Create stores a notification and queues it for push dispatch. The
// dispatch is asynchronous; the returned record is in pending state.
func (s *NotificationService) Create(ctx context.Context, req *notification.CreateRequest) (*notification.Notification, error) {
	dataJSON, _ := json.Marshal(req.Data)

	query := `
	INSERT INTO notifications (id, user_id, type, status, title, body, data, read, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, false, NOW())
	RETURNING id, user_id, type, status, title, body, read, created_at
	`

	notif := &notification.Notification{Data: req.Data}
	err := s.db.QueryRow(ctx, query,
		uuid.New(), req.UserID, req.Type, notification.StatusPending, req.Title, req.Body, dataJSON,
	).Scan(
		&notif.ID, &notif.UserID, &notif.Type, &notif.Status,
		&notif.Title, &notif.Body, &notif.Read, &notif.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	select {
	case s.jobQueue <- &dispatchJob{notif: notif}:
	default:
		log.Printf("Notification queue full, %s stays pending", notif.ID)
	}

	return notif, nil
}

func (s *NotificationService) resolveUserID(ctx context.Context, clerkID string) (uuid.UUID, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("user not found: %w", err)
	}
	return userID, nil
}

func (s *NotificationService) deviceTokens(ctx context.Context, userID uuid.UUID) ([]notification.DeviceToken, error) {
	rows, err := s.db.Query(ctx,
		`SELECT token, platform FROM device_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []notification.DeviceToken
	for rows.Next() {
		var t notification.DeviceToken
		if err := rows.Scan(&t.Token, &t.Platform); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// RegisterDevice stores a push token for the user. Re-registering the
// same token moves it to the current user (device handed over).
func (s *NotificationService) RegisterDevice(ctx context.Context, clerkID string, req *notification.RegisterDeviceRequest) error {
	if req.Token == "" {
		return fmt.Errorf("device token is required")
	}

	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return err
	}

	query := `
	INSERT INTO device_tokens (user_id, token, platform, created_at)
	VALUES ($1, $2, $3, NOW())
	ON CONFLICT (token)
	DO UPDATE SET user_id = $1, platform = $3
	`

	if _, err := s.db.Exec(ctx, query, userID, req.Token, req.Platform); err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}

func (s *NotificationService) GetNotifications(ctx context.Context, clerkID string, limit int) ([]*notification.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	query := `
	SELECT id, user_id, type, status, title, body, data, read, created_at
	FROM notifications
	WHERE user_id = $1
	ORDER BY created_at DESC
	LIMIT $2
	`

	rows, err := s.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*notification.Notification
	for rows.Next() {
		notif := &notification.Notification{}
		var rawData []byte
		err := rows.Scan(
			&notif.ID, &notif.UserID, &notif.Type, &notif.Status,
			&notif.Title, &notif.Body, &rawData, &notif.Read, &notif.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if len(rawData) > 0 {
			json.Unmarshal(rawData, &notif.Data)
		}
		notifications = append(notifications, notif)
	}
	return notifications, rows.Err()
}

func (s *NotificationService) GetUnreadCount(ctx context.Context, clerkID string) (int, error) {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return 0, err
	}

	var count int
	err = s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = false`,
		userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

func (s *NotificationService) MarkAsRead(ctx context.Context, notificationID uuid.UUID, clerkID string) error {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return err
	}

	result, err := s.db.Exec(ctx,
		`UPDATE notifications SET read = true WHERE id = $1 AND user_id = $2`,
		notificationID, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("notification not found")
	}
	return nil
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, clerkID string) error {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx,
		`UPDATE notifications SET read = true WHERE user_id = $1 AND read = false`,
		userID)
	if err != nil {
		return fmt.Errorf("failed to mark notifications as read: %w", err)
	}
	return nil
}

// SendStreakReminders is the daily fanout job. It nudges every player who
// has a live streak but no entry logged today. A day record containing
// only notes still suppresses the reminder; that imprecision is accepted
// to keep this a single query.
func (s *NotificationService) SendStreakReminders(ctx context.Context) error {
	today := time.Now().UTC().Format("2006-01-02")

	query := `
	SELECT DISTINCT p.user_id, p.current_streak
	FROM players p
	INNER JOIN device_tokens dt ON dt.user_id = p.user_id
	WHERE p.current_streak > 0
	AND NOT (p.activity_data ? $1)
	`

	rows, err := s.db.Query(ctx, query, today)
	if err != nil {
		return fmt.Errorf("failed to query reminder candidates: %w", err)
	}
	defer rows.Close()

	type candidate struct {
		userID uuid.UUID
		streak int
	}
	var candidates []candidate
	for rows.Next() {
		var c candidate
		if err := rows.Scan(&c.userID, &c.streak); err != nil {
			return fmt.Errorf("failed to scan reminder candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, c := range candidates {
		_, err := s.Create(ctx, &notification.CreateRequest{
			UserID: c.userID,
			Type:   notification.TypeStreakReminder,
			Title:  "Your streak is at risk",
			Body:   fmt.Sprintf("Log a quest today to keep your %d-day streak alive.", c.streak),
			Data:   map[string]any{"streak": c.streak},
		})
		if err != nil {
			log.Printf("Failed to create streak reminder for %s: %v", c.userID, err)
		}
	}

	log.Printf("Streak reminder fanout: %d players notified", len(candidates))
	return nil
}
