package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"immerse-backend/internal/models"
)

type AttemptRepo struct {
	pool *pgxpool.Pool
}

func NewAttemptRepo(pool *pgxpool.Pool) *AttemptRepo {
	return &AttemptRepo{pool: pool}
}

func (r *AttemptRepo) Create(ctx context.Context, a *models.Attempt) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.Status = models.StateLoading

	query := `INSERT INTO submission_attempts (id, session_id, token, source, descriptor, status)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		a.ID, a.SessionID, int64(a.Token), string(a.Source), a.Descriptor, string(a.Status),
	).Scan(&a.CreatedAt)
}

// Resolve records the outcome of the attempt identified by session and token.
// Only loading attempts are updated.
func (r *AttemptRepo) Resolve(ctx context.Context, sessionID uuid.UUID, token uint64, status models.ResultState, summary, errorDetail *string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE submission_attempts
		SET status = $1, summary = $2, error_detail = $3, resolved_at = $4
		WHERE session_id = $5 AND token = $6 AND status = 'loading'`,
		string(status), summary, errorDetail, time.Now(), sessionID, int64(token),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no loading attempt for session %s token %d", sessionID, token)
	}
	return nil
}

func (r *AttemptRepo) ListBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]*models.Attempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, token, source, descriptor, status, summary, error_detail, created_at, resolved_at
		FROM submission_attempts WHERE session_id = $1
		ORDER BY token DESC LIMIT $2`,
		sessionID, limit,
	)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Attempt, error) {
		a := &models.Attempt{}
		var token int64
		var source, status string
		if err := row.Scan(
			&a.ID, &a.SessionID, &token, &source, &a.Descriptor, &status,
			&a.Summary, &a.ErrorDetail, &a.CreatedAt, &a.ResolvedAt,
		); err != nil {
			return nil, err
		}
		a.Token = uint64(token)
		a.Source = models.SourceKind(source)
		a.Status = models.ResultState(status)
		return a, nil
	})
}
