package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"hocbai-backend/internal/models"
)

// MessageRepo is the append-only chat log. There are no update or delete
// operations by design.
type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

// Append inserts a message and fills in its ID and timestamp.
func (r *MessageRepo) Append(ctx context.Context, m *models.Message) error {
	m.ID = uuid.New()

	query := `INSERT INTO messages (id, session_id, role, content, content_html)
		VALUES ($1, $2, $3, $4, $5) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		m.ID, m.SessionID, m.Role, m.Content, m.ContentHTML,
	).Scan(&m.CreatedAt)
}

func (r *MessageRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	m := &models.Message{}
	query := `SELECT id, session_id, role, content, content_html, created_at
		FROM messages WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&m.ID, &m.SessionID, &m.Role, &m.Content, &m.ContentHTML, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ListBySession returns messages in insertion order.
func (r *MessageRepo) ListBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]*models.Message, error) {
	query := `SELECT id, session_id, role, content, content_html, created_at
		FROM messages WHERE session_id = $1 ORDER BY created_at ASC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		m := &models.Message{}
		err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.ContentHTML, &m.CreatedAt)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, nil
}
