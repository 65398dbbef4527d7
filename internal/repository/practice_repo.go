package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"hocbai-backend/internal/models"
)

type PracticeRepo struct {
	pool *pgxpool.Pool
}

func NewPracticeRepo(pool *pgxpool.Pool) *PracticeRepo {
	return &PracticeRepo{pool: pool}
}

func (r *PracticeRepo) Create(ctx context.Context, p *models.PracticeSet) error {
	p.ID = uuid.New()
	p.Status = "pending"
	if p.ConfigJSON == nil {
		p.ConfigJSON = json.RawMessage("{}")
	}
	if p.QuestionsJSON == nil {
		p.QuestionsJSON = json.RawMessage("[]")
	}

	query := `INSERT INTO practice_sets (id, session_id, topic, difficulty, config_json, questions_json, question_count, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		p.ID, p.SessionID, p.Topic, p.Difficulty, p.ConfigJSON, p.QuestionsJSON, p.QuestionCount, p.Status,
	).Scan(&p.CreatedAt)
}

func (r *PracticeRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.PracticeSet, error) {
	p := &models.PracticeSet{}
	query := `SELECT id, session_id, topic, difficulty, config_json, questions_json, question_count, status, raw_response, created_at
		FROM practice_sets WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.SessionID, &p.Topic, &p.Difficulty, &p.ConfigJSON, &p.QuestionsJSON,
		&p.QuestionCount, &p.Status, &p.RawResponse, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PracticeRepo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*models.PracticeSet, error) {
	query := `SELECT id, session_id, topic, difficulty, config_json, questions_json, question_count, status, raw_response, created_at
		FROM practice_sets WHERE session_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sets []*models.PracticeSet
	for rows.Next() {
		p := &models.PracticeSet{}
		err := rows.Scan(&p.ID, &p.SessionID, &p.Topic, &p.Difficulty, &p.ConfigJSON, &p.QuestionsJSON,
			&p.QuestionCount, &p.Status, &p.RawResponse, &p.CreatedAt)
		if err != nil {
			return nil, err
		}
		sets = append(sets, p)
	}
	return sets, nil
}

// UpdateQuestions stores the extracted question array and marks the set ready.
func (r *PracticeRepo) UpdateQuestions(ctx context.Context, id uuid.UUID, questions json.RawMessage, count int) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE practice_sets SET questions_json = $1, question_count = $2, status = 'ready' WHERE id = $3",
		questions, count, id,
	)
	return err
}

// SaveRawResponse keeps the unparsed model text for diagnostics.
func (r *PracticeRepo) SaveRawResponse(ctx context.Context, id uuid.UUID, raw string) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE practice_sets SET raw_response = $1 WHERE id = $2",
		raw, id,
	)
	return err
}

func (r *PracticeRepo) MarkFailed(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "UPDATE practice_sets SET status = 'failed' WHERE id = $1", id)
	return err
}
