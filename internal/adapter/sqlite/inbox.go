package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rangeguard/zone-conflict-notifier/internal/domain"
)

// MaxInboxPage caps how many notifications List returns.
const MaxInboxPage = 100

// Append stores d as an unread notification. It implements
// fanout.NotificationSink.
func (s *Store) Append(ctx context.Context, d domain.NotificationDraft) error {
	n := domain.NewNotification(d)
	data, err := json.Marshal(n.Payload)
	if err != nil {
		return fmt.Errorf("encode notification payload: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO notifications(id, user_id, type, title, message, data, read, created_at) VALUES(?,?,?,?,?,?,0,?)`,
		n.ID, n.RecipientID, string(n.Category), n.Title, n.Body, string(data), domain.FormatTimestamp(n.CreatedAt))
	if err != nil {
		return fmt.Errorf("store notification for %s: %w", n.RecipientID, err)
	}
	return nil
}

// List returns userID's notifications, newest first. limit is clamped to
// 1..MaxInboxPage.
func (s *Store) List(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	if limit <= 0 || limit > MaxInboxPage {
		limit = MaxInboxPage
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, user_id, type, title, message, data, read, created_at
		FROM notifications WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query notifications of %s: %w", userID, err)
	}
	defer rows.Close()

	out := make([]domain.Notification, 0)
	for rows.Next() {
		var (
			n               domain.Notification
			data, createdAt string
		)
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Category, &n.Title, &n.Body, &data, &n.Read, &createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(data), &n.Payload); err != nil {
			return nil, fmt.Errorf("notification %s payload: %w", n.ID, err)
		}
		if n.CreatedAt, err = domain.ParseTimestamp(createdAt); err != nil {
			return nil, fmt.Errorf("notification %s created_at: %w", n.ID, err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// UnreadCount returns how many of userID's notifications are unread.
func (s *Store) UnreadCount(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = ? AND read = 0`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unread of %s: %w", userID, err)
	}
	return n, nil
}

// MarkRead marks one of userID's notifications read. Notifications owned by
// someone else are reported as domain.ErrNotFound.
func (s *Store) MarkRead(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE notifications SET read = 1 WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("mark notification %s read: %w", id, err)
	}
	return affected(res, "notification", id)
}

// MarkAllRead marks every unread notification of userID read and returns
// how many changed.
func (s *Store) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE notifications SET read = 1 WHERE user_id = ? AND read = 0`, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all read for %s: %w", userID, err)
	}
	return res.RowsAffected()
}

// Delete removes one of userID's notifications.
func (s *Store) Delete(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete notification %s: %w", id, err)
	}
	return affected(res, "notification", id)
}
