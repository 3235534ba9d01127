package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/nebc/quizhub-backend/internal/repository"
	"github.com/nebc/quizhub-backend/internal/service"
)

const (
	DeadlineSweepInterval = 1 * time.Second
	DeadlineSweepBatch    = 100
)

// DeadlineWorker force-submits overdue attempts: in-progress attempts past
// their deadline and pending confirmations that ran out their grace window.
// The conditional submit write means losing a race to a concurrent user
// submit is harmless.
type DeadlineWorker struct {
	attemptRepo *repository.AttemptRepository
	attemptSvc  *service.AttemptService
	log         zerolog.Logger
}

// NewDeadlineWorker creates a new DeadlineWorker.
func NewDeadlineWorker(attemptRepo *repository.AttemptRepository, attemptSvc *service.AttemptService, log zerolog.Logger) *DeadlineWorker {
	return &DeadlineWorker{
		attemptRepo: attemptRepo,
		attemptSvc:  attemptSvc,
		log:         log.With().Str("component", "deadline_worker").Logger(),
	}
}

// Start begins the sweep loop. Call in a goroutine.
func (w *DeadlineWorker) Start(ctx context.Context) {
	w.log.Info().Msg("DeadlineWorker started")

	ticker := time.NewTicker(DeadlineSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// One last sweep so attempts overdue at shutdown still close.
			w.sweep(context.Background())
			w.log.Info().Msg("DeadlineWorker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *DeadlineWorker) sweep(ctx context.Context) {
	overdue, err := w.attemptRepo.ListOverdue(ctx, time.Now(), DeadlineSweepBatch)
	if err != nil {
		w.log.Error().Err(err).Msg("Overdue listing failed")
		return
	}

	for i := range overdue {
		attempt := &overdue[i]
		if err := w.attemptSvc.ForceSubmit(ctx, attempt); err != nil {
			w.log.Error().Err(err).
				Str("exam_id", attempt.ExamID.String()).
				Str("user_id", attempt.UserID.String()).
				Msg("Force submit failed")
			continue
		}
		w.log.Info().
			Str("exam_id", attempt.ExamID.String()).
			Str("user_id", attempt.UserID.String()).
			Str("was", string(attempt.Status)).
			Msg("Force submitted overdue attempt")
	}
}
