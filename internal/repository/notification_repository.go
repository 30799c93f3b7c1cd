package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// NotificationRepository stores durable per-recipient notifications.
// MarkRead and Delete take the caller's recipient keys so one recipient can
// never touch another's notifications.
type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) error
	ListRecent(ctx context.Context, recipientKeys []string, limit int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id string, recipientKeys []string) error
	Delete(ctx context.Context, id string, recipientKeys []string) error
}

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository builds the repository.
func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{pool: pool}
}

func (r *notificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	const query = `
        INSERT INTO notifications (recipient_key, type, title, message, ticket_id, read)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		notification.RecipientKey,
		notification.Type,
		notification.Title,
		notification.Message,
		notification.TicketID,
		notification.Read,
	).Scan(&notification.ID, &notification.CreatedAt)
}

func (r *notificationRepository) ListRecent(ctx context.Context, recipientKeys []string, limit int) ([]domain.Notification, error) {
	if len(recipientKeys) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	placeholders := make([]string, len(recipientKeys))
	args := make([]any, 0, len(recipientKeys)+1)
	for i, key := range recipientKeys {
		args = append(args, key)
		placeholders[i] = fmt.Sprintf("$%d", len(args))
	}
	args = append(args, limit)
	query := fmt.Sprintf(`
        SELECT id, recipient_key, type, title, message, ticket_id, read, created_at
        FROM notifications WHERE recipient_key IN (%s)
        ORDER BY created_at DESC LIMIT $%d`,
		strings.Join(placeholders, ","), len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(
			&n.ID,
			&n.RecipientKey,
			&n.Type,
			&n.Title,
			&n.Message,
			&n.TicketID,
			&n.Read,
			&n.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

func (r *notificationRepository) MarkRead(ctx context.Context, id string, recipientKeys []string) error {
	query, args := scopedMutation("UPDATE notifications SET read=TRUE", id, recipientKeys)
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *notificationRepository) Delete(ctx context.Context, id string, recipientKeys []string) error {
	query, args := scopedMutation("DELETE FROM notifications", id, recipientKeys)
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scopedMutation(prefix, id string, recipientKeys []string) (string, []any) {
	args := []any{id}
	placeholders := make([]string, len(recipientKeys))
	for i, key := range recipientKeys {
		args = append(args, key)
		placeholders[i] = fmt.Sprintf("$%d", len(args))
	}
	query := fmt.Sprintf("%s WHERE id=$1 AND recipient_key IN (%s)",
		prefix, strings.Join(placeholders, ","))
	return query, args
}
