package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/nebc/quizhub-backend/internal/grading"
	"github.com/nebc/quizhub-backend/internal/model"
	"github.com/nebc/quizhub-backend/internal/repository"
)

// ErrResultsNotReady is returned while an exam's answer release time has not
// passed.
var ErrResultsNotReady = errors.New("results are not available yet")

// ResultService grades result views on demand. Aggregates flagged by
// needs_rescore are recomputed lazily on first read after an edit, then
// cached back on the attempt row.
type ResultService struct {
	attemptRepo *repository.AttemptRepository
	examSvc     *ExamService
	log         zerolog.Logger
}

// NewResultService creates a new ResultService.
func NewResultService(attemptRepo *repository.AttemptRepository, examSvc *ExamService, log zerolog.Logger) *ResultService {
	return &ResultService{
		attemptRepo: attemptRepo,
		examSvc:     examSvc,
		log:         log.With().Str("component", "result_service").Logger(),
	}
}

// answersReleased reports whether per-question verdicts and explanations may
// be shown. A nil release time means results are visible on submit.
func answersReleased(answerAvailableAt *time.Time, now time.Time) bool {
	return answerAvailableAt == nil || !now.Before(*answerAvailableAt)
}

// MyResult returns the caller's graded view of their submitted attempt.
func (s *ResultService) MyResult(ctx context.Context, examID, userID uuid.UUID) (*model.AttemptResult, error) {
	attempt, err := s.attemptRepo.GetByExamAndUser(ctx, examID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoActiveAttempt
		}
		return nil, err
	}
	if attempt.Status != model.AttemptStatusSubmitted {
		return nil, ErrResultsNotReady
	}

	src, err := s.examSvc.Source(ctx, examID)
	if err != nil {
		return nil, err
	}

	// Totals are visible right after submit; per-question verdicts and
	// explanations wait for the release time.
	return s.buildResult(ctx, src, attempt, answersReleased(src.Exam.AnswerAvailableAt, time.Now()))
}

// buildResult grades the attempt's stored answers and, when the flag is still
// set, writes the recomputed totals back. The conditional write means two
// concurrent readers produce one update.
func (s *ResultService) buildResult(ctx context.Context, src *PaperSource, attempt *model.Attempt, withDetails bool) (*model.AttemptResult, error) {
	interactedSet := make(map[string]bool, len(attempt.Interacted))
	for _, qid := range attempt.Interacted {
		interactedSet[qid] = true
	}

	entries := src.GradingEntries()
	verdicts, totals := grading.ScoreAttempt(entries, attempt.Answers, interactedSet, src.Exam.Graded())

	if attempt.NeedsRescore {
		applied, err := s.attemptRepo.SaveTotals(ctx, attempt.ID, totals)
		if err != nil {
			return nil, err
		}
		if applied {
			s.log.Debug().Str("attempt_id", attempt.ID.String()).Msg("lazily rescored attempt")
		}
	}

	result := &model.AttemptResult{
		ExamID:         attempt.ExamID,
		UserID:         attempt.UserID,
		Graded:         src.Exam.Graded(),
		TotalScore:     totals.TotalScore,
		CorrectCount:   totals.CorrectCount,
		TotalQuestions: totals.TotalQuestions,
		SubmittedAt:    attempt.SubmittedAt,
		ElapsedSeconds: attempt.ElapsedSeconds,
	}
	if !withDetails {
		return result, nil
	}
	for i, v := range verdicts {
		q := entries[i].Question
		result.Results = append(result.Results, model.QuestionResult{
			QuestionID:    q.ID,
			Prompt:        q.Prompt,
			Correct:       v.Correct,
			Unanswered:    v.Unanswered,
			Score:         v.Score,
			Answer:        attempt.Answers[v.QuestionID],
			CorrectAnswer: q.Answer,
			Explanation:   q.Explanation,
		})
	}
	return result, nil
}

// ExamResults returns graded views of every submitted attempt of an exam.
// Admin use; release gating does not apply.
func (s *ResultService) ExamResults(ctx context.Context, examID uuid.UUID) ([]model.AttemptResult, error) {
	src, err := s.examSvc.Source(ctx, examID)
	if err != nil {
		return nil, err
	}
	attempts, err := s.attemptRepo.ListSubmittedByExam(ctx, examID)
	if err != nil {
		return nil, err
	}

	results := make([]model.AttemptResult, 0, len(attempts))
	for i := range attempts {
		r, err := s.buildResult(ctx, src, &attempts[i], true)
		if err != nil {
			return nil, err
		}
		results = append(results, *r)
	}
	return results, nil
}

// Distribution summarizes per-question answer spread over all submitted
// attempts of an exam.
func (s *ResultService) Distribution(ctx context.Context, examID uuid.UUID) ([]model.AnswerDistribution, error) {
	src, err := s.examSvc.Source(ctx, examID)
	if err != nil {
		return nil, err
	}
	attempts, err := s.attemptRepo.ListSubmittedByExam(ctx, examID)
	if err != nil {
		return nil, err
	}

	dists := make([]model.AnswerDistribution, len(src.Questions))
	for i := range src.Questions {
		q := &src.Questions[i]
		dists[i] = model.AnswerDistribution{
			QuestionID: q.ID,
			Type:       q.Type,
			Prompt:     q.Prompt,
			Choices:    map[string]int{},
			Total:      len(attempts),
		}
	}

	for a := range attempts {
		attempt := &attempts[a]
		interactedSet := make(map[string]bool, len(attempt.Interacted))
		for _, qid := range attempt.Interacted {
			interactedSet[qid] = true
		}
		for i := range src.Questions {
			q := &src.Questions[i]
			ans := attempt.Answers[q.ID.String()]
			if grading.IsUnanswered(q, ans, interactedSet) {
				dists[i].Unanswered++
				continue
			}
			dists[i].Choices[string(ans)]++
			if grading.IsCorrect(q, ans) {
				dists[i].Correct++
			}
		}
	}
	return dists, nil
}
