package notify

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"campustrack/internal/model"
)

// Repository persists notifications; the worker writes them, dashboards
// poll them.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert stores one delivered notification.
func (r *Repository) Insert(ctx context.Context, p Payload) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, type, title, message, link)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, uuid.NewString(), p.UserID, p.Type, p.Title, p.Message, p.Link)
	return err
}

// ListByUser returns a user's notifications, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, type, title, message, link, read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []model.Notification
	for rows.Next() {
		var n model.Notification
		var createdAt time.Time
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.Link, &n.Read, &createdAt); err != nil {
			return nil, err
		}
		n.CreatedAt = createdAt
		res = append(res, n)
	}
	return res, rows.Err()
}
