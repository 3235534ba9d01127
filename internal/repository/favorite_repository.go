package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nebc/quizhub-backend/internal/model"
)

// FavoriteRepository handles per-user question bookmarks.
type FavoriteRepository struct {
	pool *pgxpool.Pool
}

// NewFavoriteRepository creates a new FavoriteRepository.
func NewFavoriteRepository(pool *pgxpool.Pool) *FavoriteRepository {
	return &FavoriteRepository{pool: pool}
}

// Set marks or unmarks a question as favorite. Unfavoriting is a soft delete
// so re-favoriting keeps the original created_at.
func (r *FavoriteRepository) Set(ctx context.Context, userID, questionID uuid.UUID, favorite bool) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO favorites (user_id, question_id, deleted)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, question_id)
		 DO UPDATE SET deleted = $3, updated_at = NOW()`,
		userID, questionID, !favorite)
	return err
}

// ListByUser retrieves a user's favorited questions, newest bookmark first.
// Questions moved to trash drop out of the listing.
func (r *FavoriteRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Question, int, error) {
	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*)
		 FROM favorites f
		 JOIN questions q ON q.id = f.question_id
		 WHERE f.user_id = $1 AND f.deleted = FALSE AND q.deleted = FALSE`,
		userID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT q.id, q.question_type, q.group_type, q.prompt, q.explanation,
		        q.options, q.left_items, q.right_items, q.order_options, q.answer,
		        q.deleted, q.created_at, q.updated_at
		 FROM favorites f
		 JOIN questions q ON q.id = f.question_id
		 WHERE f.user_id = $1 AND f.deleted = FALSE AND q.deleted = FALSE
		 ORDER BY f.updated_at DESC
		 LIMIT $2 OFFSET $3`,
		userID, limit, offset)
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

// IsFavorite reports whether a question is currently favorited.
func (r *FavoriteRepository) IsFavorite(ctx context.Context, userID, questionID uuid.UUID) (bool, error) {
	var favorite bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
		        SELECT 1 FROM favorites
		        WHERE user_id = $1 AND question_id = $2 AND deleted = FALSE)`,
		userID, questionID).Scan(&favorite)
	return favorite, err
}
