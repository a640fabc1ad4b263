package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flicky/storefront/internal/model"
)

type ContactRepository interface {
	Create(ctx context.Context, msg *model.ContactMessage) error
	List(ctx context.Context) ([]model.ContactMessage, error)
	SetStatus(ctx context.Context, id uuid.UUID, status model.MessageStatus) error
}

type pgContactRepo struct{ pool *pgxpool.Pool }

func NewContactRepository(pool *pgxpool.Pool) ContactRepository {
	return &pgContactRepo{pool: pool}
}

func (r *pgContactRepo) Create(ctx context.Context, msg *model.ContactMessage) error {
	msg.ID = uuid.New()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO contact_messages (id, name, email, phone, message, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW()) RETURNING created_at`,
		msg.ID, msg.Name, msg.Email, msg.Phone, msg.Message, msg.Status,
	).Scan(&msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("create contact message: %w", err)
	}
	return nil
}

func (r *pgContactRepo) List(ctx context.Context) ([]model.ContactMessage, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, email, phone, message, status, created_at FROM contact_messages ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list contact messages: %w", err)
	}
	defer rows.Close()

	var msgs []model.ContactMessage
	for rows.Next() {
		var m model.ContactMessage
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Phone, &m.Message, &m.Status, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan contact message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (r *pgContactRepo) SetStatus(ctx context.Context, id uuid.UUID, status model.MessageStatus) error {
	ct, err := r.pool.Exec(ctx, `UPDATE contact_messages SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update contact message: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
