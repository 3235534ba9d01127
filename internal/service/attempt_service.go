package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/nebc/quizhub-backend/internal/config"
	"github.com/nebc/quizhub-backend/internal/grading"
	"github.com/nebc/quizhub-backend/internal/model"
	"github.com/nebc/quizhub-backend/internal/repository"
)

// Common attempt errors.
var (
	ErrExamNotOpen      = errors.New("exam has not opened yet")
	ErrExamClosed       = errors.New("exam is closed")
	ErrAlreadySubmitted = errors.New("attempt already submitted")
	ErrNoActiveAttempt  = errors.New("no active attempt")
	ErrDeadlinePassed   = errors.New("attempt deadline has passed")
	ErrNoConfirmPending = errors.New("no confirmation pending")
	ErrUnknownExamItem  = errors.New("answer references a question not in the exam")
)

// persistJob is one fast-lane flush request on the persist queue.
type persistJob struct {
	ExamID string `json:"exam_id"`
	UserID string `json:"user_id"`
}

// AttemptState is the resumable view of an in-flight attempt.
type AttemptState struct {
	Status           model.AttemptStatus        `json:"status"`
	StartedAt        time.Time                  `json:"started_at"`
	Deadline         *time.Time                 `json:"deadline,omitempty"`
	RemainingSeconds *int                       `json:"remaining_seconds,omitempty"`
	ConfirmBy        *time.Time                 `json:"confirm_by,omitempty"`
	Answers          map[string]json.RawMessage `json:"answers"`
	Interacted       []string                   `json:"interacted"`
}

// StartResult is what a taker receives when opening an exam.
type StartResult struct {
	Paper   *model.ExamPaper `json:"paper"`
	State   *AttemptState    `json:"state"`
	Resumed bool             `json:"resumed"`
}

// AttemptService drives the attempt lifecycle: start, answer capture on the
// Redis fast lane, and the submit state machine. All transitions are
// conditional database writes, so the user submit path and the deadline
// sweeper can race safely.
type AttemptService struct {
	cfg         *config.Config
	attemptRepo *repository.AttemptRepository
	examSvc     *ExamService
	rdb         *redis.Client
	log         zerolog.Logger
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	cfg *config.Config,
	attemptRepo *repository.AttemptRepository,
	examSvc *ExamService,
	rdb *redis.Client,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		cfg:         cfg,
		attemptRepo: attemptRepo,
		examSvc:     examSvc,
		rdb:         rdb,
		log:         log.With().Str("component", "attempt_service").Logger(),
	}
}

// accessWindow checks the exam's answering window against now.
func accessWindow(openAt, closeAt *time.Time, now time.Time) error {
	if openAt != nil && now.Before(*openAt) {
		return ErrExamNotOpen
	}
	if closeAt != nil && now.After(*closeAt) {
		return ErrExamClosed
	}
	return nil
}

// computeDeadline derives the attempt deadline as the earlier of the exam
// close time and the per-user countdown. Nil when the exam has neither bound.
// An explicit zero-minute limit yields a deadline equal to startedAt.
func computeDeadline(closeAt *time.Time, limitMinutes *int, startedAt time.Time) *time.Time {
	var deadline *time.Time
	if limitMinutes != nil {
		d := startedAt.Add(time.Duration(*limitMinutes) * time.Minute)
		deadline = &d
	}
	if closeAt != nil && (deadline == nil || closeAt.Before(*deadline)) {
		deadline = closeAt
	}
	return deadline
}

// pastDeadline reports whether now falls outside the deadline plus the
// network grace allowance.
func pastDeadline(deadline *time.Time, grace time.Duration, now time.Time) bool {
	return deadline != nil && now.After(deadline.Add(grace))
}

// Start opens (or resumes) the caller's attempt on an exam. The attempt row
// insert is idempotent; a submitted attempt cannot be reopened.
func (s *AttemptService) Start(ctx context.Context, examID, userID uuid.UUID) (*StartResult, error) {
	src, err := s.examSvc.Source(ctx, examID)
	if err != nil {
		return nil, err
	}
	if src.Exam.Deleted {
		return nil, pgx.ErrNoRows
	}

	now := time.Now()
	if err := accessWindow(src.Exam.OpenAt, src.Exam.CloseAt, now); err != nil {
		return nil, err
	}

	deadline := computeDeadline(src.Exam.CloseAt, src.Exam.TimeLimitMinutes, now)
	attempt, created, err := s.attemptRepo.CreateIfAbsent(ctx, examID, userID, deadline)
	if err != nil {
		return nil, fmt.Errorf("create attempt: %w", err)
	}
	if attempt.Status == model.AttemptStatusSubmitted {
		return nil, ErrAlreadySubmitted
	}

	if created {
		s.cacheDeadline(ctx, examID, userID, attempt.Deadline)
		s.log.Info().Str("exam_id", examID.String()).Str("user_id", userID.String()).
			Msg("attempt started")
	}

	// A deadline already in the past at entry (zero-minute limit) settles the
	// attempt on the spot, skipping the confirmation step.
	if attempt.Deadline != nil && !attempt.Deadline.After(now) {
		if err := s.ForceSubmit(ctx, attempt); err != nil {
			return nil, err
		}
		return nil, ErrAlreadySubmitted
	}

	paper, err := s.examSvc.Paper(ctx, examID)
	if err != nil {
		return nil, err
	}
	state, err := s.state(ctx, attempt, now)
	if err != nil {
		return nil, err
	}
	return &StartResult{Paper: paper, State: state, Resumed: !created}, nil
}

// State returns the resumable view of the caller's attempt.
func (s *AttemptService) State(ctx context.Context, examID, userID uuid.UUID) (*AttemptState, error) {
	attempt, err := s.attemptRepo.GetByExamAndUser(ctx, examID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoActiveAttempt
		}
		return nil, err
	}
	return s.state(ctx, attempt, time.Now())
}

func (s *AttemptService) state(ctx context.Context, attempt *model.Attempt, now time.Time) (*AttemptState, error) {
	answers, interacted, err := s.collectAnswers(ctx, attempt)
	if err != nil {
		return nil, err
	}

	st := &AttemptState{
		Status:     attempt.Status,
		StartedAt:  attempt.StartedAt,
		Deadline:   attempt.Deadline,
		ConfirmBy:  attempt.ConfirmBy,
		Answers:    answers,
		Interacted: interacted,
	}
	if attempt.Deadline != nil {
		remaining := int(attempt.Deadline.Sub(now).Seconds())
		if remaining < 0 {
			remaining = 0
		}
		st.RemainingSeconds = &remaining
	}
	return st, nil
}

// SaveAnswer captures one answer on the fast lane and queues a database
// flush. The write is rejected once the deadline plus grace has passed.
func (s *AttemptService) SaveAnswer(ctx context.Context, examID, userID uuid.UUID, req *model.SaveAnswerRequest) error {
	if err := s.checkActive(ctx, examID, userID, time.Now()); err != nil {
		return err
	}

	src, err := s.examSvc.Source(ctx, examID)
	if err != nil {
		return err
	}
	var question *model.Question
	for i := range src.Questions {
		if src.Questions[i].ID.String() == req.QuestionID {
			question = &src.Questions[i]
			break
		}
	}
	if question == nil {
		return ErrUnknownExamItem
	}

	answersKey := config.CacheKey.AttemptAnswersKey(userID.String(), examID.String())
	if err := s.rdb.HSet(ctx, answersKey, req.QuestionID, string(req.Answer)).Err(); err != nil {
		return fmt.Errorf("cache answer: %w", err)
	}
	if req.Interacted {
		interactedKey := config.CacheKey.AttemptInteractedKey(userID.String(), examID.String())
		if err := s.rdb.SAdd(ctx, interactedKey, req.QuestionID).Err(); err != nil {
			return fmt.Errorf("cache interaction: %w", err)
		}
	}

	job, _ := json.Marshal(persistJob{ExamID: examID.String(), UserID: userID.String()})
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, job).Err(); err != nil {
		s.log.Warn().Err(err).Msg("persist enqueue failed, answer stays in cache")
	}
	return nil
}

// checkActive verifies the attempt exists, is not submitted, and is inside
// its deadline. The deadline lives in Redis so the per-keystroke path skips
// the database; on a cache miss it falls back and re-primes.
func (s *AttemptService) checkActive(ctx context.Context, examID, userID uuid.UUID, now time.Time) error {
	deadlineKey := config.CacheKey.AttemptDeadlineKey(userID.String(), examID.String())
	val, err := s.rdb.Get(ctx, deadlineKey).Result()
	if err == nil {
		unix, parseErr := strconv.ParseInt(val, 10, 64)
		if parseErr == nil {
			if unix == 0 {
				return nil
			}
			deadline := time.Unix(unix, 0)
			if pastDeadline(&deadline, s.cfg.SubmitGrace, now) {
				return ErrDeadlinePassed
			}
			return nil
		}
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Msg("deadline cache read failed, falling back to database")
	}

	attempt, err := s.attemptRepo.GetByExamAndUser(ctx, examID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNoActiveAttempt
		}
		return err
	}
	if attempt.Status == model.AttemptStatusSubmitted {
		return ErrAlreadySubmitted
	}
	if pastDeadline(attempt.Deadline, s.cfg.SubmitGrace, now) {
		return ErrDeadlinePassed
	}
	s.cacheDeadline(ctx, examID, userID, attempt.Deadline)
	return nil
}

func (s *AttemptService) cacheDeadline(ctx context.Context, examID, userID uuid.UUID, deadline *time.Time) {
	var unix int64
	ttl := 24 * time.Hour
	if deadline != nil {
		unix = deadline.Unix()
		ttl = time.Until(deadline.Add(s.cfg.SubmitGrace)) + time.Minute
		if ttl <= 0 {
			return
		}
	}
	key := config.CacheKey.AttemptDeadlineKey(userID.String(), examID.String())
	if err := s.rdb.Set(ctx, key, strconv.FormatInt(unix, 10), ttl).Err(); err != nil {
		s.log.Warn().Err(err).Msg("deadline cache write failed")
	}
}

// collectAnswers merges the fast-lane snapshot over whatever the autosave
// worker already flushed. Redis wins per question id.
func (s *AttemptService) collectAnswers(ctx context.Context, attempt *model.Attempt) (map[string]json.RawMessage, []string, error) {
	answers := make(map[string]json.RawMessage, len(attempt.Answers))
	for qid, ans := range attempt.Answers {
		answers[qid] = ans
	}
	interactedSet := make(map[string]bool, len(attempt.Interacted))
	for _, qid := range attempt.Interacted {
		interactedSet[qid] = true
	}

	answersKey := config.CacheKey.AttemptAnswersKey(attempt.UserID.String(), attempt.ExamID.String())
	cached, err := s.rdb.HGetAll(ctx, answersKey).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("read cached answers: %w", err)
	}
	for qid, raw := range cached {
		answers[qid] = json.RawMessage(raw)
	}

	interactedKey := config.CacheKey.AttemptInteractedKey(attempt.UserID.String(), attempt.ExamID.String())
	members, err := s.rdb.SMembers(ctx, interactedKey).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("read cached interactions: %w", err)
	}
	for _, qid := range members {
		interactedSet[qid] = true
	}

	interacted := make([]string, 0, len(interactedSet))
	for qid := range interactedSet {
		interacted = append(interacted, qid)
	}
	return answers, interacted, nil
}

// Submit runs the submit state machine. With unanswered questions and no
// confirmation, the attempt parks in pending_confirm for the grace window
// instead of finalizing; otherwise it finalizes and scores immediately.
func (s *AttemptService) Submit(ctx context.Context, examID, userID uuid.UUID, req *model.SubmitRequest) (*model.SubmitOutcome, error) {
	now := time.Now()
	attempt, err := s.attemptRepo.GetByExamAndUser(ctx, examID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoActiveAttempt
		}
		return nil, err
	}
	if attempt.Status == model.AttemptStatusSubmitted {
		return nil, ErrAlreadySubmitted
	}
	if pastDeadline(attempt.Deadline, s.cfg.SubmitGrace, now) {
		return nil, ErrDeadlinePassed
	}

	src, err := s.examSvc.Source(ctx, examID)
	if err != nil {
		return nil, err
	}
	answers, interacted, err := s.collectAnswers(ctx, attempt)
	if err != nil {
		return nil, err
	}

	if !req.Confirmed {
		unanswered := countUnanswered(src.GradingEntries(), answers, interacted)
		if unanswered > 0 {
			confirmBy := now.Add(s.cfg.ConfirmGrace)
			moved, err := s.attemptRepo.MarkPendingConfirm(ctx, examID, userID, confirmBy)
			if err != nil {
				return nil, fmt.Errorf("mark pending confirm: %w", err)
			}
			if !moved {
				// Already pending: keep the original window.
				current, err := s.attemptRepo.GetByExamAndUser(ctx, examID, userID)
				if err != nil {
					return nil, err
				}
				if current.Status == model.AttemptStatusSubmitted {
					return nil, ErrAlreadySubmitted
				}
				return &model.SubmitOutcome{
					Status:     current.Status,
					Unanswered: unanswered,
					ConfirmBy:  current.ConfirmBy,
				}, nil
			}
			return &model.SubmitOutcome{
				Status:     model.AttemptStatusPendingConfirm,
				Unanswered: unanswered,
				ConfirmBy:  &confirmBy,
			}, nil
		}
	}

	if _, err := s.finalize(ctx, src, examID, userID, answers, interacted,
		[]model.AttemptStatus{model.AttemptStatusInProgress, model.AttemptStatusPendingConfirm}); err != nil {
		return nil, err
	}
	return &model.SubmitOutcome{Status: model.AttemptStatusSubmitted}, nil
}

// Confirm finalizes an attempt parked in pending_confirm.
func (s *AttemptService) Confirm(ctx context.Context, examID, userID uuid.UUID) (*model.SubmitOutcome, error) {
	attempt, err := s.attemptRepo.GetByExamAndUser(ctx, examID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoActiveAttempt
		}
		return nil, err
	}
	if attempt.Status == model.AttemptStatusSubmitted {
		return nil, ErrAlreadySubmitted
	}
	if attempt.Status != model.AttemptStatusPendingConfirm {
		return nil, ErrNoConfirmPending
	}

	src, err := s.examSvc.Source(ctx, examID)
	if err != nil {
		return nil, err
	}
	answers, interacted, err := s.collectAnswers(ctx, attempt)
	if err != nil {
		return nil, err
	}
	if _, err := s.finalize(ctx, src, examID, userID, answers, interacted,
		[]model.AttemptStatus{model.AttemptStatusPendingConfirm}); err != nil {
		return nil, err
	}
	return &model.SubmitOutcome{Status: model.AttemptStatusSubmitted}, nil
}

// Cancel returns a pending_confirm attempt to in_progress so the user keeps
// answering.
func (s *AttemptService) Cancel(ctx context.Context, examID, userID uuid.UUID) error {
	moved, err := s.attemptRepo.CancelConfirm(ctx, examID, userID)
	if err != nil {
		return err
	}
	if !moved {
		return ErrNoConfirmPending
	}
	return nil
}

// ForceSubmit finalizes an overdue attempt with whatever answers are on
// record. Used by the deadline sweeper; losing the race to a user submit is
// not an error.
func (s *AttemptService) ForceSubmit(ctx context.Context, attempt *model.Attempt) error {
	src, err := s.examSvc.Source(ctx, attempt.ExamID)
	if err != nil {
		return err
	}
	answers, interacted, err := s.collectAnswers(ctx, attempt)
	if err != nil {
		return err
	}
	_, err = s.finalize(ctx, src, attempt.ExamID, attempt.UserID, answers, interacted,
		[]model.AttemptStatus{model.AttemptStatusInProgress, model.AttemptStatusPendingConfirm})
	if errors.Is(err, ErrAlreadySubmitted) {
		return nil
	}
	return err
}

// finalize performs the single conditional write that ends an attempt, then
// scores it and drops the fast-lane keys.
func (s *AttemptService) finalize(ctx context.Context, src *PaperSource, examID, userID uuid.UUID, answers map[string]json.RawMessage, interacted []string, from []model.AttemptStatus) (*model.Attempt, error) {
	attempt, err := s.attemptRepo.Submit(ctx, examID, userID, answers, interacted, from)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlreadySubmitted
		}
		return nil, fmt.Errorf("submit attempt: %w", err)
	}

	interactedSet := make(map[string]bool, len(interacted))
	for _, qid := range interacted {
		interactedSet[qid] = true
	}
	_, totals := grading.ScoreAttempt(src.GradingEntries(), answers, interactedSet, src.Exam.Graded())
	if _, err := s.attemptRepo.SaveTotals(ctx, attempt.ID, totals); err != nil {
		return nil, fmt.Errorf("save totals: %w", err)
	}

	s.dropFastLane(ctx, examID, userID)
	s.log.Info().Str("exam_id", examID.String()).Str("user_id", userID.String()).
		Int("total_score", totals.TotalScore).
		Int("correct", totals.CorrectCount).
		Int("questions", totals.TotalQuestions).
		Msg("attempt submitted")
	return attempt, nil
}

func (s *AttemptService) dropFastLane(ctx context.Context, examID, userID uuid.UUID) {
	keys := []string{
		config.CacheKey.AttemptAnswersKey(userID.String(), examID.String()),
		config.CacheKey.AttemptInteractedKey(userID.String(), examID.String()),
		config.CacheKey.AttemptDeadlineKey(userID.String(), examID.String()),
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		s.log.Warn().Err(err).Msg("fast lane cleanup failed")
	}
}

// countUnanswered counts questions the taker has not genuinely answered.
func countUnanswered(entries []grading.Entry, answers map[string]json.RawMessage, interacted []string) int {
	interactedSet := make(map[string]bool, len(interacted))
	for _, qid := range interacted {
		interactedSet[qid] = true
	}
	count := 0
	for _, e := range entries {
		if grading.IsUnanswered(e.Question, answers[e.Question.ID.String()], interactedSet) {
			count++
		}
	}
	return count
}
