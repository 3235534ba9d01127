package worker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/nebc/quizhub-backend/internal/config"
	"github.com/nebc/quizhub-backend/internal/grading"
	"github.com/nebc/quizhub-backend/internal/repository"
	"github.com/nebc/quizhub-backend/internal/service"
)

const (
	RescoreBatchSize    = 50
	RescoreBatchTimeout = 2 * time.Second
	RescorePollTimeout  = 1 * time.Second
)

// ScoringWorker consumes rescore_queue and recomputes aggregates of attempts
// flagged after an exam or question edit. Each queue item is an exam id;
// duplicates within a batch collapse into one pass.
type ScoringWorker struct {
	attemptRepo *repository.AttemptRepository
	examSvc     *service.ExamService
	rdb         *redis.Client
	log         zerolog.Logger
}

// NewScoringWorker creates a new ScoringWorker.
func NewScoringWorker(attemptRepo *repository.AttemptRepository, examSvc *service.ExamService, rdb *redis.Client, log zerolog.Logger) *ScoringWorker {
	return &ScoringWorker{
		attemptRepo: attemptRepo,
		examSvc:     examSvc,
		rdb:         rdb,
		log:         log.With().Str("component", "scoring_worker").Logger(),
	}
}

// Start begins the worker loop with batching. Call in a goroutine.
func (w *ScoringWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ScoringWorker started")

	batch := make(map[string]struct{}, RescoreBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= RescoreBatchSize || time.Since(lastFlush) >= RescoreBatchTimeout) {

			w.flush(ctx, batch)
			batch = make(map[string]struct{}, RescoreBatchSize)
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flush(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, RescorePollTimeout, config.WorkerKey.RescoreQueue).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}
			if len(item) < 2 {
				continue
			}
			batch[item[1]] = struct{}{}
		}
	}
}

func (w *ScoringWorker) flush(ctx context.Context, batch map[string]struct{}) {
	for raw := range batch {
		examID, err := uuid.Parse(raw)
		if err != nil {
			w.log.Error().Str("payload", raw).Msg("Invalid exam id on rescore queue")
			continue
		}
		if err := w.rescoreExam(ctx, examID); err != nil {
			w.log.Error().Err(err).Str("exam_id", raw).Msg("Rescore failed, requeueing")
			w.rdb.RPush(ctx, config.WorkerKey.RescoreQueue, raw)
		}
	}
}

// rescoreExam recomputes every flagged attempt of the exam. The conditional
// totals write makes this safe against a concurrent lazy rescore on the read
// path; whoever writes first wins and the other pass is a no-op.
func (w *ScoringWorker) rescoreExam(ctx context.Context, examID uuid.UUID) error {
	src, err := w.examSvc.Source(ctx, examID)
	if err != nil {
		return err
	}
	attempts, err := w.attemptRepo.ListStaleByExam(ctx, examID)
	if err != nil {
		return err
	}

	entries := src.GradingEntries()
	updated := 0
	for i := range attempts {
		attempt := &attempts[i]
		interactedSet := make(map[string]bool, len(attempt.Interacted))
		for _, qid := range attempt.Interacted {
			interactedSet[qid] = true
		}
		_, totals := grading.ScoreAttempt(entries, attempt.Answers, interactedSet, src.Exam.Graded())
		applied, err := w.attemptRepo.SaveTotals(ctx, attempt.ID, totals)
		if err != nil {
			return err
		}
		if applied {
			updated++
		}
	}

	if updated > 0 {
		w.log.Info().Str("exam_id", examID.String()).Int("attempts", updated).
			Msg("Rescored attempts")
	}
	return nil
}
