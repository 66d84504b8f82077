package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres writes notifications to the notifications table.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres returns a Notifier backed by pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) CreateNotification(ctx context.Context, n Notification) error {
	data, err := json.Marshal(n.Data)
	if err != nil {
		return fmt.Errorf("marshal notification data: %w", err)
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO notifications (id, user_id, type, title, message, data, action_url, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8)`,
		n.ID, n.UserID, n.Kind, n.Title, n.Message, string(data), n.ActionURL, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}
