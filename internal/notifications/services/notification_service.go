package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/c14220110/hospital-backend/internal/notifications/models"
	"github.com/c14220110/hospital-backend/pkg/apperror"
)

type Broadcaster interface {
	Publish(resource string, data interface{})
}

// NotificationService menyimpan notifikasi per user dan memberi tahu client lewat hub.
type NotificationService struct {
	DB  *sql.DB
	Hub Broadcaster
	Log logrus.FieldLogger
}

func NewNotificationService(db *sql.DB, hub Broadcaster, log logrus.FieldLogger) *NotificationService {
	return &NotificationService{DB: db, Hub: hub, Log: log}
}

// Notify menyimpan satu notifikasi lalu mem-broadcast "notification_update" untuk user tersebut.
func (s *NotificationService) Notify(ctx context.Context, userID int64, kind, message string, referenceID int64) error {
	var ref sql.NullInt64
	if referenceID > 0 {
		ref = sql.NullInt64{Int64: referenceID, Valid: true}
	}
	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO notifications (user_id, type, message, reference_id) VALUES (?, ?, ?, ?)`,
		userID, kind, message, ref)
	if err != nil {
		return apperror.Internal(fmt.Errorf("insert notification: %w", err))
	}
	id, _ := res.LastInsertId()
	s.Hub.Publish("notification", map[string]interface{}{
		"id":      id,
		"user_id": userID,
		"type":    kind,
	})
	return nil
}

// ListForUser mengembalikan notifikasi terbaru milik user; unreadOnly membatasi yang belum dibaca.
func (s *NotificationService) ListForUser(ctx context.Context, userID int64, unreadOnly bool) ([]models.Notification, error) {
	query := `SELECT id, user_id, type, message, reference_id, is_read, created_at FROM notifications WHERE user_id = ?`
	if unreadOnly {
		query += " AND is_read = FALSE"
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT 100"

	rows, err := s.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("list notifications: %w", err))
	}
	defer rows.Close()

	result := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		var ref sql.NullInt64
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Message, &ref, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, apperror.Internal(err)
		}
		if ref.Valid {
			n.ReferenceID = &ref.Int64
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Internal(err)
	}
	return result, nil
}

// MarkRead hanya berlaku untuk notifikasi milik user itu sendiri.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID int64) error {
	var isRead bool
	err := s.DB.QueryRowContext(ctx, `SELECT is_read FROM notifications WHERE id = ? AND user_id = ?`, id, userID).Scan(&isRead)
	if errors.Is(err, sql.ErrNoRows) {
		return apperror.NotFound("notification")
	}
	if err != nil {
		return apperror.Internal(err)
	}
	if isRead {
		return nil
	}
	if _, err := s.DB.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = ?`, id); err != nil {
		return apperror.Internal(fmt.Errorf("mark notification read: %w", err))
	}
	s.Hub.Publish("notification", map[string]interface{}{"id": id, "user_id": userID, "is_read": true})
	return nil
}
