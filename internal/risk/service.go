package risk

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/geoippro/pkg/common"
	"github.com/richxcame/geoippro/pkg/logger"
	"go.uber.org/zap"
)

// ErrEvaluationNotFound is returned by repositories for unknown ids.
var ErrEvaluationNotFound = errors.New("evaluation not found")

// EvaluationRepository persists evaluations for audit.
type EvaluationRepository interface {
	SaveEvaluation(ctx context.Context, e *Evaluation) error
	GetEvaluation(ctx context.Context, id uuid.UUID) (*Evaluation, error)
}

// Evaluator produces a verdict for a request.
type Evaluator interface {
	Evaluate(ctx context.Context, req RequestContext, cfg Configuration) Verdict
}

// Service runs evaluations with the loaded configuration and records them.
type Service struct {
	engine Evaluator
	repo   EvaluationRepository
	cfg    Configuration
	now    func() time.Time
}

// NewService creates a service. repo may be nil, in which case evaluations
// are only logged.
func NewService(engine Evaluator, repo EvaluationRepository, cfg Configuration) *Service {
	return &Service{
		engine: engine,
		repo:   repo,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Evaluate runs the engine for req. It always returns an evaluation; audit
// failures are logged and do not affect the verdict.
func (s *Service) Evaluate(ctx context.Context, invoiceID string, req RequestContext) *Evaluation {
	start := s.now()
	verdict := s.engine.Evaluate(ctx, req, s.cfg)

	eval := &Evaluation{
		ID:          uuid.New(),
		InvoiceID:   invoiceID,
		Request:     req,
		Verdict:     verdict,
		EvaluatedAt: start.UTC(),
		Duration:    s.now().Sub(start),
	}

	log := logger.WithContext(ctx)
	log.Info("risk evaluation completed",
		zap.String("evaluation_id", eval.ID.String()),
		zap.String("invoice_id", invoiceID),
		zap.String("ip", req.IP),
		zap.Bool("is_fraud", verdict.IsFraud),
		zap.Strings("reasons", verdict.Reasons),
		zap.Duration("duration", eval.Duration),
	)

	if s.repo != nil {
		if err := s.repo.SaveEvaluation(ctx, eval); err != nil {
			log.Error("failed to record risk evaluation",
				zap.String("evaluation_id", eval.ID.String()),
				zap.Error(err),
			)
		}
	}

	return eval
}

// GetEvaluation returns a recorded evaluation.
func (s *Service) GetEvaluation(ctx context.Context, id uuid.UUID) (*Evaluation, error) {
	if s.repo == nil {
		return nil, common.NewServiceUnavailableError("evaluation audit log is not configured")
	}
	eval, err := s.repo.GetEvaluation(ctx, id)
	if err != nil {
		if errors.Is(err, ErrEvaluationNotFound) {
			return nil, common.NewNotFoundError("evaluation not found", err)
		}
		return nil, common.NewAppError(http.StatusInternalServerError, "failed to load evaluation", err)
	}
	return eval, nil
}

// Configuration returns the active configuration.
func (s *Service) Configuration() Configuration {
	return s.cfg
}
