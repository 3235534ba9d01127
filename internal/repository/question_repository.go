package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nebc/quizhub-backend/internal/model"
)

// QuestionRepository handles question bank data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

const questionColumns = `id, question_type, group_type, prompt, explanation,
	options, left_items, right_items, order_options, answer, deleted, created_at, updated_at`

func scanQuestion(row interface{ Scan(...any) error }) (*model.Question, error) {
	q := &model.Question{}
	err := row.Scan(&q.ID, &q.Type, &q.GroupType, &q.Prompt, &q.Explanation,
		&q.Options, &q.Left, &q.Right, &q.OrderOptions, &q.Answer,
		&q.Deleted, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// GetByID retrieves a question by its UUID, including soft-deleted ones so
// historical attempts keep resolving.
func (r *QuestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	return scanQuestion(r.pool.QueryRow(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = $1`, id))
}

// GetByIDs retrieves a batch of questions keyed by id. Missing ids are simply
// absent from the result map.
func (r *QuestionRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := make(map[uuid.UUID]*model.Question, len(ids))
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions[q.ID] = q
	}
	return questions, rows.Err()
}

// ListPaginated retrieves questions with optional group type filtering.
// deleted selects the trash view when true.
func (r *QuestionRepository) ListPaginated(ctx context.Context, groupType string, deleted bool, limit, offset int) ([]model.Question, int, error) {
	baseQuery := ` FROM questions WHERE deleted = $1`
	args := []any{deleted}

	if groupType != "" {
		args = append(args, groupType)
		baseQuery += fmt.Sprintf(" AND group_type = $%d", len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+baseQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + questionColumns + baseQuery +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, 0, err
		}
		questions = append(questions, *q)
	}
	return questions, total, rows.Err()
}

// Create inserts a new question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (question_type, group_type, prompt, explanation,
		        options, left_items, right_items, order_options, answer)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at, updated_at`,
		q.Type, q.GroupType, q.Prompt, q.Explanation,
		q.Options, q.Left, q.Right, q.OrderOptions, q.Answer,
	).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
}

// Update rewrites a question's mutable fields.
func (r *QuestionRepository) Update(ctx context.Context, q *model.Question) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE questions
		 SET group_type = $1, prompt = $2, explanation = $3, options = $4,
		     left_items = $5, right_items = $6, order_options = $7, answer = $8,
		     updated_at = NOW()
		 WHERE id = $9`,
		q.GroupType, q.Prompt, q.Explanation, q.Options,
		q.Left, q.Right, q.OrderOptions, q.Answer, q.ID)
	return err
}

// SetDeleted flips the soft-delete flag (trash/restore).
func (r *QuestionRepository) SetDeleted(ctx context.Context, id uuid.UUID, deleted bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE questions SET deleted = $1, updated_at = NOW() WHERE id = $2`,
		deleted, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
