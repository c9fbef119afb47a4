package repository

import (
	"context"
	"fmt"

	"messaging-service/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NotificationRepository persists notification headers with their fan-out
// rows and answers catalog existence checks.
type NotificationRepository interface {
	SourceExists(ctx context.Context, id int64) (bool, error)
	ActionExists(ctx context.Context, id int64) (bool, error)

	// CreateWithRecipients writes the header and all recipient rows in one
	// transaction. A header is never left behind without recipients.
	CreateWithRecipients(ctx context.Context, n *domain.Notification, recipients []*domain.NotificationRecipient) (*domain.Notification, error)

	ListByRecipient(ctx context.Context, rt domain.RecipientType, recipientID int64, limit, offset int) ([]*domain.Notification, error)
}

type pgNotificationRepo struct {
	db *pgxpool.Pool
}

func NewNotificationRepository(db *pgxpool.Pool) NotificationRepository {
	return &pgNotificationRepo{db: db}
}

func (r *pgNotificationRepo) SourceExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM notification_sources WHERE id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("source exists: %w", err)
	}
	return exists, nil
}

func (r *pgNotificationRepo) ActionExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM notification_actions WHERE id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("action exists: %w", err)
	}
	return exists, nil
}

func (r *pgNotificationRepo) CreateWithRecipients(ctx context.Context, n *domain.Notification, recipients []*domain.NotificationRecipient) (*domain.Notification, error) {
	if len(recipients) == 0 {
		return nil, fmt.Errorf("create notification: no recipients")
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("create notification: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO notifications (
			request_id, source_id, action_id,
			sender_member_id, sender_manager_id,
			group_code, title, body, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING id, created_at`,
		n.RequestID, n.SourceID, n.ActionID,
		n.SenderMemberID, n.SenderManagerID,
		n.GroupCode, n.Title, n.Body,
	).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create notification: header: %w", err)
	}

	for _, rec := range recipients {
		rec.NotificationID = n.ID
		err = tx.QueryRow(ctx, `
			INSERT INTO notification_recipients (notification_id, recipient_type, recipient_id)
			VALUES ($1, $2, $3)
			RETURNING id`,
			rec.NotificationID, rec.RecipientType, rec.RecipientID,
		).Scan(&rec.ID)
		if err != nil {
			return nil, fmt.Errorf("create notification: recipient: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("create notification: commit: %w", err)
	}
	return n, nil
}

func (r *pgNotificationRepo) ListByRecipient(ctx context.Context, rt domain.RecipientType, recipientID int64, limit, offset int) ([]*domain.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.Query(ctx, `
		SELECT n.id, n.request_id, n.source_id, n.action_id,
		       n.sender_member_id, n.sender_manager_id,
		       n.group_code, n.title, n.body, n.created_at
		FROM notifications n
		JOIN notification_recipients nr ON nr.notification_id = n.id
		WHERE nr.recipient_type = $1 AND nr.recipient_id = $2
		ORDER BY n.created_at DESC
		LIMIT $3 OFFSET $4`,
		rt, recipientID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var items []*domain.Notification
	for rows.Next() {
		var n domain.Notification
		err := rows.Scan(
			&n.ID, &n.RequestID, &n.SourceID, &n.ActionID,
			&n.SenderMemberID, &n.SenderManagerID,
			&n.GroupCode, &n.Title, &n.Body, &n.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("list notifications: scan: %w", err)
		}
		items = append(items, &n)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("list notifications: %w", rows.Err())
	}
	return items, nil
}
