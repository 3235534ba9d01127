package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/nebc/quizhub-backend/internal/config"
	"github.com/nebc/quizhub-backend/internal/repository"
)

// AutosaveWorker consumes persist_answers_queue and flushes fast-lane answer
// snapshots to PostgreSQL.
type AutosaveWorker struct {
	attemptRepo *repository.AttemptRepository
	rdb         *redis.Client
	log         zerolog.Logger
}

// NewAutosaveWorker creates a new AutosaveWorker.
func NewAutosaveWorker(attemptRepo *repository.AttemptRepository, rdb *redis.Client, log zerolog.Logger) *AutosaveWorker {
	return &AutosaveWorker{
		attemptRepo: attemptRepo,
		rdb:         rdb,
		log:         log.With().Str("component", "autosave_worker").Logger(),
	}
}

type persistPayload struct {
	ExamID string `json:"exam_id"`
	UserID string `json:"user_id"`
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *AutosaveWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			// Drain remaining items before exit.
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *AutosaveWorker) processNext(ctx context.Context) {
	// BLPop blocks until an item is available or timeout (1 second).
	result, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.PersistAnswersQueue).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(result) < 2 {
		return
	}

	var payload persistPayload
	if err := json.Unmarshal([]byte(result[1]), &payload); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error")
		return
	}

	if err := w.persist(ctx, &payload); err != nil {
		w.log.Error().Err(err).
			Str("user_id", payload.UserID).
			Str("exam_id", payload.ExamID).
			Msg("Persist error, retrying in 5s")
		// Push back to queue for retry.
		w.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, result[1])
		time.Sleep(5 * time.Second)
	}
}

// persist merges the fast-lane snapshot over whatever was flushed before and
// rewrites the attempt's answer columns. Redis wins per question id; a
// submitted attempt is left untouched.
func (w *AutosaveWorker) persist(ctx context.Context, p *persistPayload) error {
	examID, err := uuid.Parse(p.ExamID)
	if err != nil {
		return err
	}
	userID, err := uuid.Parse(p.UserID)
	if err != nil {
		return err
	}

	attempt, err := w.attemptRepo.GetByExamAndUser(ctx, examID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Attempt vanished; nothing to flush.
			return nil
		}
		return err
	}

	answers := make(map[string]json.RawMessage, len(attempt.Answers))
	for qid, ans := range attempt.Answers {
		answers[qid] = ans
	}
	cached, err := w.rdb.HGetAll(ctx, config.CacheKey.AttemptAnswersKey(p.UserID, p.ExamID)).Result()
	if err != nil {
		return err
	}
	for qid, raw := range cached {
		answers[qid] = json.RawMessage(raw)
	}

	interactedSet := make(map[string]bool, len(attempt.Interacted))
	for _, qid := range attempt.Interacted {
		interactedSet[qid] = true
	}
	members, err := w.rdb.SMembers(ctx, config.CacheKey.AttemptInteractedKey(p.UserID, p.ExamID)).Result()
	if err != nil {
		return err
	}
	for _, qid := range members {
		interactedSet[qid] = true
	}
	interacted := make([]string, 0, len(interactedSet))
	for qid := range interactedSet {
		interacted = append(interacted, qid)
	}

	return w.attemptRepo.SaveAnswers(ctx, examID, userID, answers, interacted)
}

// drain processes all remaining items in the queue before shutdown.
func (w *AutosaveWorker) drain(ctx context.Context) {
	drained := 0
	for {
		result, err := w.rdb.LPop(ctx, config.WorkerKey.PersistAnswersQueue).Result()
		if err != nil {
			break
		}

		var payload persistPayload
		if err := json.Unmarshal([]byte(result), &payload); err != nil {
			w.log.Error().Err(err).Msg("Drain unmarshal error")
			continue
		}

		if err := w.persist(ctx, &payload); err != nil {
			w.log.Error().Err(err).Msg("Drain persist error")
			w.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, result)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
