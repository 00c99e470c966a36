package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/richxcame/geoippro/internal/risk"
)

// DB is the subset of *pgxpool.Pool the repository needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository stores risk evaluations in PostgreSQL
type Repository struct {
	db DB
}

var _ risk.EvaluationRepository = (*Repository)(nil)

// NewRepository creates a new audit repository
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

// SaveEvaluation records one evaluation
func (r *Repository) SaveEvaluation(ctx context.Context, e *risk.Evaluation) error {
	requestJSON, err := json.Marshal(e.Request)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	reasons := e.Verdict.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	reasonsJSON, err := json.Marshal(reasons)
	if err != nil {
		return fmt.Errorf("marshal reasons: %w", err)
	}

	query := `
		INSERT INTO risk_evaluations (
			id, invoice_id, ip, is_fraud, reasons, request, duration_ms, evaluated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.Exec(ctx, query,
		e.ID,
		nullString(e.InvoiceID),
		e.Request.IP,
		e.Verdict.IsFraud,
		reasonsJSON,
		requestJSON,
		e.Duration.Milliseconds(),
		e.EvaluatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert evaluation: %w", err)
	}
	return nil
}

// GetEvaluation retrieves an evaluation by ID
func (r *Repository) GetEvaluation(ctx context.Context, id uuid.UUID) (*risk.Evaluation, error) {
	query := `
		SELECT id, invoice_id, is_fraud, reasons, request, duration_ms, evaluated_at
		FROM risk_evaluations
		WHERE id = $1
	`

	var e risk.Evaluation
	var invoiceID sql.NullString
	var reasonsJSON, requestJSON []byte
	var durationMs int64

	err := r.db.QueryRow(ctx, query, id).Scan(
		&e.ID,
		&invoiceID,
		&e.Verdict.IsFraud,
		&reasonsJSON,
		&requestJSON,
		&durationMs,
		&e.EvaluatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, risk.ErrEvaluationNotFound
		}
		return nil, fmt.Errorf("select evaluation: %w", err)
	}

	if err := json.Unmarshal(reasonsJSON, &e.Verdict.Reasons); err != nil {
		return nil, fmt.Errorf("decode reasons: %w", err)
	}
	if err := json.Unmarshal(requestJSON, &e.Request); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}

	e.InvoiceID = invoiceID.String
	e.Duration = time.Duration(durationMs) * time.Millisecond
	return &e, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
