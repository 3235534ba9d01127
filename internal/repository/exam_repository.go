package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nebc/quizhub-backend/internal/model"
)

// ExamRepository handles exam and exam_questions data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

const examColumns = `id, title, description, group_type, open_at, close_at,
	answer_available_at, time_limit_minutes, deleted, created_at, updated_at`

func scanExam(row interface{ Scan(...any) error }) (*model.Exam, error) {
	e := &model.Exam{}
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.GroupType,
		&e.OpenAt, &e.CloseAt, &e.AnswerAvailableAt, &e.TimeLimitMinutes,
		&e.Deleted, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// GetByID retrieves an exam with its question references in position order.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e, err := scanExam(r.pool.QueryRow(ctx,
		`SELECT `+examColumns+` FROM exams WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT question_id, score FROM exam_questions
		 WHERE exam_id = $1 ORDER BY position ASC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var eq model.ExamQuestion
		if err := rows.Scan(&eq.QuestionID, &eq.Score); err != nil {
			return nil, err
		}
		e.Questions = append(e.Questions, eq)
	}
	return e, rows.Err()
}

// ListPaginated retrieves exams with optional group type filtering.
// deleted selects the trash view when true.
func (r *ExamRepository) ListPaginated(ctx context.Context, groupType string, deleted bool, limit, offset int) ([]model.Exam, int, error) {
	baseQuery := ` FROM exams WHERE deleted = $1`
	args := []any{deleted}

	if groupType != "" {
		args = append(args, groupType)
		baseQuery += fmt.Sprintf(" AND group_type = $%d", len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+baseQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + examColumns + baseQuery +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, 0, err
		}
		exams = append(exams, *e)
	}
	return exams, total, rows.Err()
}

// ListActiveIDs retrieves ids of all non-deleted exams, used to prewarm the
// paper cache on startup.
func (r *ExamRepository) ListActiveIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM exams WHERE deleted = FALSE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListIDsByQuestion retrieves ids of non-deleted exams referencing a question.
func (r *ExamRepository) ListIDsByQuestion(ctx context.Context, questionID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT e.id FROM exams e
		 JOIN exam_questions eq ON eq.exam_id = e.id
		 WHERE eq.question_id = $1 AND e.deleted = FALSE`, questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Create inserts an exam and its question references in one transaction.
func (r *ExamRepository) Create(ctx context.Context, e *model.Exam) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO exams (title, description, group_type, open_at, close_at,
		        answer_available_at, time_limit_minutes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		e.Title, e.Description, e.GroupType, e.OpenAt, e.CloseAt,
		e.AnswerAvailableAt, e.TimeLimitMinutes,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return err
	}

	if err := insertExamQuestions(ctx, tx, e.ID, e.Questions); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Update rewrites an exam's fields and replaces its question references.
func (r *ExamRepository) Update(ctx context.Context, e *model.Exam) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE exams
		 SET title = $1, description = $2, group_type = $3, open_at = $4,
		     close_at = $5, answer_available_at = $6, time_limit_minutes = $7,
		     updated_at = NOW()
		 WHERE id = $8`,
		e.Title, e.Description, e.GroupType, e.OpenAt, e.CloseAt,
		e.AnswerAvailableAt, e.TimeLimitMinutes, e.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	if _, err := tx.Exec(ctx, `DELETE FROM exam_questions WHERE exam_id = $1`, e.ID); err != nil {
		return err
	}
	if err := insertExamQuestions(ctx, tx, e.ID, e.Questions); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertExamQuestions(ctx context.Context, tx pgx.Tx, examID uuid.UUID, questions []model.ExamQuestion) error {
	for i, eq := range questions {
		_, err := tx.Exec(ctx,
			`INSERT INTO exam_questions (exam_id, question_id, position, score)
			 VALUES ($1, $2, $3, $4)`,
			examID, eq.QuestionID, i, eq.Score)
		if err != nil {
			return err
		}
	}
	return nil
}

// SetDeleted flips the soft-delete flag (trash/restore).
func (r *ExamRepository) SetDeleted(ctx context.Context, id uuid.UUID, deleted bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exams SET deleted = $1, updated_at = NOW() WHERE id = $2`,
		deleted, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
