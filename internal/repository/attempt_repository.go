package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nebc/quizhub-backend/internal/grading"
	"github.com/nebc/quizhub-backend/internal/model"
)

// AttemptRepository handles exam attempt data access. The unique constraint
// on (exam_id, user_id) is the sole resubmission gate: a second attempt
// insert is a silent no-op and the caller receives the existing row.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

const attemptColumns = `id, exam_id, user_id, status, answers, interacted,
	started_at, deadline, confirm_by, submitted_at, elapsed_seconds,
	total_score, correct_count, total_questions, needs_rescore, created_at, updated_at`

func scanAttempt(row interface{ Scan(...any) error }) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := row.Scan(&a.ID, &a.ExamID, &a.UserID, &a.Status, &a.Answers, &a.Interacted,
		&a.StartedAt, &a.Deadline, &a.ConfirmBy, &a.SubmittedAt, &a.ElapsedSeconds,
		&a.TotalScore, &a.CorrectCount, &a.TotalQuestions, &a.NeedsRescore,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// CreateIfAbsent inserts an in-progress attempt for (examID, userID) unless
// one already exists. It returns the attempt and whether this call created it.
func (r *AttemptRepository) CreateIfAbsent(ctx context.Context, examID, userID uuid.UUID, deadline *time.Time) (*model.Attempt, bool, error) {
	a, err := scanAttempt(r.pool.QueryRow(ctx,
		`INSERT INTO attempts (exam_id, user_id, status, deadline)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (exam_id, user_id) DO NOTHING
		 RETURNING `+attemptColumns,
		examID, userID, model.AttemptStatusInProgress, deadline))
	if err == nil {
		return a, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, err
	}

	a, err = r.GetByExamAndUser(ctx, examID, userID)
	return a, false, err
}

// GetByExamAndUser retrieves the attempt for (examID, userID).
func (r *AttemptRepository) GetByExamAndUser(ctx context.Context, examID, userID uuid.UUID) (*model.Attempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE exam_id = $1 AND user_id = $2`,
		examID, userID))
}

// GetByID retrieves an attempt by id.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE id = $1`, id))
}

// SaveAnswers persists an answer snapshot from the fast lane. Submitted
// attempts are never touched, so a late flush cannot overwrite final answers.
func (r *AttemptRepository) SaveAnswers(ctx context.Context, examID, userID uuid.UUID, answers map[string]json.RawMessage, interacted []string) error {
	if interacted == nil {
		interacted = []string{}
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE attempts
		 SET answers = $3, interacted = $4, updated_at = NOW()
		 WHERE exam_id = $1 AND user_id = $2 AND status <> $5`,
		examID, userID, answers, interacted, model.AttemptStatusSubmitted)
	return err
}

// MarkPendingConfirm moves an in-progress attempt to pending_confirm with the
// given confirmation deadline. Returns false if the attempt was not
// in progress (already submitted or already waiting).
func (r *AttemptRepository) MarkPendingConfirm(ctx context.Context, examID, userID uuid.UUID, confirmBy time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE attempts SET status = $3, confirm_by = $4, updated_at = NOW()
		 WHERE exam_id = $1 AND user_id = $2 AND status = $5`,
		examID, userID, model.AttemptStatusPendingConfirm, confirmBy, model.AttemptStatusInProgress)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// CancelConfirm moves a pending_confirm attempt back to in_progress.
// Returns false if no confirmation was pending.
func (r *AttemptRepository) CancelConfirm(ctx context.Context, examID, userID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE attempts SET status = $3, confirm_by = NULL, updated_at = NOW()
		 WHERE exam_id = $1 AND user_id = $2 AND status = $4`,
		examID, userID, model.AttemptStatusInProgress, model.AttemptStatusPendingConfirm)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Submit finalizes an attempt with the given answer snapshot. The status
// condition makes the write conditional: the race loser between a user
// submit and the deadline sweeper affects zero rows and gets pgx.ErrNoRows.
func (r *AttemptRepository) Submit(ctx context.Context, examID, userID uuid.UUID, answers map[string]json.RawMessage, interacted []string, from []model.AttemptStatus) (*model.Attempt, error) {
	if interacted == nil {
		interacted = []string{}
	}
	statuses := make([]string, len(from))
	for i, s := range from {
		statuses[i] = string(s)
	}
	return scanAttempt(r.pool.QueryRow(ctx,
		`UPDATE attempts
		 SET status = $3, answers = $4, interacted = $5, confirm_by = NULL,
		     submitted_at = NOW(),
		     elapsed_seconds = EXTRACT(EPOCH FROM (NOW() - started_at))::int,
		     needs_rescore = TRUE, updated_at = NOW()
		 WHERE exam_id = $1 AND user_id = $2 AND status = ANY($6)
		 RETURNING `+attemptColumns,
		examID, userID, model.AttemptStatusSubmitted, answers, interacted, statuses))
}

// ListOverdue retrieves attempts the deadline sweeper must act on: in-progress
// attempts past their deadline and pending confirmations past their window.
func (r *AttemptRepository) ListOverdue(ctx context.Context, now time.Time, limit int) ([]model.Attempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+` FROM attempts
		 WHERE (status = $1 AND deadline IS NOT NULL AND deadline < $3)
		    OR (status = $2 AND confirm_by IS NOT NULL AND confirm_by < $3)
		 ORDER BY updated_at ASC
		 LIMIT $4`,
		model.AttemptStatusInProgress, model.AttemptStatusPendingConfirm, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}

// SaveTotals records recomputed aggregates. The needs_rescore condition makes
// the write at-most-once per flagging: a concurrent rescore of the same
// attempt affects zero rows and reports applied=false.
func (r *AttemptRepository) SaveTotals(ctx context.Context, id uuid.UUID, totals grading.Totals) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE attempts
		 SET total_score = $2, correct_count = $3, total_questions = $4,
		     needs_rescore = FALSE, updated_at = NOW()
		 WHERE id = $1 AND needs_rescore = TRUE`,
		id, totals.TotalScore, totals.CorrectCount, totals.TotalQuestions)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkNeedsRescoreByExam flags every submitted attempt of an exam for lazy
// rescoring, used after the exam or one of its questions is edited.
func (r *AttemptRepository) MarkNeedsRescoreByExam(ctx context.Context, examID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE attempts SET needs_rescore = TRUE, updated_at = NOW()
		 WHERE exam_id = $1 AND status = $2`,
		examID, model.AttemptStatusSubmitted)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// MarkNeedsRescoreByQuestion flags submitted attempts of every exam that
// references the question.
func (r *AttemptRepository) MarkNeedsRescoreByQuestion(ctx context.Context, questionID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE attempts SET needs_rescore = TRUE, updated_at = NOW()
		 WHERE status = $2 AND exam_id IN (
		        SELECT exam_id FROM exam_questions WHERE question_id = $1)`,
		questionID, model.AttemptStatusSubmitted)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListStaleByExam retrieves submitted attempts of an exam still flagged for
// rescoring.
func (r *AttemptRepository) ListStaleByExam(ctx context.Context, examID uuid.UUID) ([]model.Attempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+` FROM attempts
		 WHERE exam_id = $1 AND status = $2 AND needs_rescore = TRUE`,
		examID, model.AttemptStatusSubmitted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}

// ListSubmittedByExam retrieves all submitted attempts of an exam with their
// answer snapshots, used for the admin answer distribution view.
func (r *AttemptRepository) ListSubmittedByExam(ctx context.Context, examID uuid.UUID) ([]model.Attempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+` FROM attempts
		 WHERE exam_id = $1 AND status = $2
		 ORDER BY submitted_at ASC`,
		examID, model.AttemptStatusSubmitted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}

const (
	examScoreExpr = `a.total_score`
	examRateExpr  = `CASE WHEN a.total_questions > 0
	                      THEN a.correct_count::float / a.total_questions
	                      ELSE 0 END`
	globalScoreExpr = `SUM(a.total_score)`
	globalRateExpr  = `CASE WHEN SUM(a.total_questions) > 0
	                        THEN SUM(a.correct_count)::float / SUM(a.total_questions)
	                        ELSE 0 END`
)

// standingsOrder builds the ORDER BY clause for the requested primary sort.
// The non-primary key ranks second and elapsed time ascending breaks ties.
func standingsOrder(sort model.LeaderboardSort, scoreExpr, rateExpr, elapsedExpr string) string {
	first, second := scoreExpr, rateExpr
	if sort == model.SortByCorrectRate {
		first, second = rateExpr, scoreExpr
	}
	return ` ORDER BY ` + first + ` DESC, ` + second + ` DESC, ` + elapsedExpr + ` ASC`
}

// ExamStandings retrieves the per-exam leaderboard with the requested primary
// sort (total score or correct rate).
func (r *AttemptRepository) ExamStandings(ctx context.Context, examID uuid.UUID, sort model.LeaderboardSort, limit int) ([]model.ExamStanding, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT u.id, u.name, u.nickname,
		        a.total_score, a.correct_count, a.total_questions,
		        a.elapsed_seconds, a.submitted_at
		 FROM attempts a
		 JOIN users u ON u.id = a.user_id
		 WHERE a.exam_id = $1 AND a.status = $2`+
			standingsOrder(sort, examScoreExpr, examRateExpr, `a.elapsed_seconds`)+
			` LIMIT $3`,
		examID, model.AttemptStatusSubmitted, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var standings []model.ExamStanding
	for rows.Next() {
		var s model.ExamStanding
		err := rows.Scan(&s.UserID, &s.Name, &s.Nickname,
			&s.TotalScore, &s.CorrectCount, &s.TotalQuestions,
			&s.ElapsedSeconds, &s.SubmittedAt)
		if err != nil {
			return nil, err
		}
		if s.TotalQuestions > 0 {
			s.CorrectRate = float64(s.CorrectCount) / float64(s.TotalQuestions)
		}
		standings = append(standings, s)
	}
	return standings, rows.Err()
}

// GlobalStandings aggregates submitted attempts per user into the all-time
// leaderboard. Totals are derived sums, so rescoring an attempt never
// double-counts.
func (r *AttemptRepository) GlobalStandings(ctx context.Context, sort model.LeaderboardSort, limit int) ([]model.GlobalStanding, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT u.id, u.name, u.nickname,
		        COALESCE(SUM(a.total_score), 0),
		        COALESCE(SUM(a.correct_count), 0),
		        COALESCE(SUM(a.total_questions), 0),
		        COALESCE(SUM(a.elapsed_seconds), 0),
		        COUNT(a.id)
		 FROM users u
		 JOIN attempts a ON a.user_id = u.id AND a.status = $1
		 GROUP BY u.id, u.name, u.nickname`+
			standingsOrder(sort, globalScoreExpr, globalRateExpr, `SUM(a.elapsed_seconds)`)+
			` LIMIT $2`,
		model.AttemptStatusSubmitted, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var standings []model.GlobalStanding
	for rows.Next() {
		var s model.GlobalStanding
		err := rows.Scan(&s.UserID, &s.Name, &s.Nickname,
			&s.TotalScore, &s.CorrectCount, &s.TotalQuestions,
			&s.ElapsedSeconds, &s.ExamsTaken)
		if err != nil {
			return nil, err
		}
		if s.TotalQuestions > 0 {
			s.CorrectRate = float64(s.CorrectCount) / float64(s.TotalQuestions)
		}
		standings = append(standings, s)
	}
	return standings, rows.Err()
}

// ListSubmittedByUser retrieves a user's submitted attempts, newest first.
func (r *AttemptRepository) ListSubmittedByUser(ctx context.Context, userID uuid.UUID) ([]model.Attempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+` FROM attempts
		 WHERE user_id = $1 AND status = $2
		 ORDER BY submitted_at DESC`,
		userID, model.AttemptStatusSubmitted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}
