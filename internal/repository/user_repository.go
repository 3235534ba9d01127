package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nebc/quizhub-backend/internal/model"
)

// UserRepository handles user account data access.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, email, name, nickname, avatar_url, role, password_hash,
	deleted, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Nickname, &u.AvatarURL,
		&u.Role, &u.PasswordHash, &u.Deleted, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Create inserts a new account. A duplicate email surfaces as a unique
// violation from the driver.
func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO users (email, name, nickname, avatar_url, role, password_hash)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		u.Email, u.Name, u.Nickname, u.AvatarURL, u.Role, u.PasswordHash,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
}

// GetByEmail retrieves an active account by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1 AND deleted = FALSE`, email))
}

// GetByID retrieves an active account by id.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 AND deleted = FALSE`, id))
}

// UpdateProfile rewrites the mutable profile fields.
func (r *UserRepository) UpdateProfile(ctx context.Context, id uuid.UUID, name, nickname, avatarURL string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET name = $2, nickname = $3, avatar_url = $4, updated_at = NOW()
		 WHERE id = $1`,
		id, name, nickname, avatarURL)
	return err
}

// LifetimeTotals derives a user's all-time aggregate as a sum over submitted
// attempts. There is no stored accumulator to drift out of sync.
func (r *UserRepository) LifetimeTotals(ctx context.Context, id uuid.UUID) (*model.UserTotals, error) {
	t := &model.UserTotals{}
	err := r.pool.QueryRow(ctx,
		`SELECT u.id, u.name, u.nickname, u.avatar_url,
		        COALESCE(SUM(a.total_score), 0),
		        COALESCE(SUM(a.correct_count), 0),
		        COALESCE(SUM(a.total_questions), 0),
		        COUNT(a.id)
		 FROM users u
		 LEFT JOIN attempts a ON a.user_id = u.id AND a.status = $2
		 WHERE u.id = $1 AND u.deleted = FALSE
		 GROUP BY u.id, u.name, u.nickname, u.avatar_url`,
		id, model.AttemptStatusSubmitted,
	).Scan(&t.UserID, &t.Name, &t.Nickname, &t.AvatarURL,
		&t.TotalScore, &t.CorrectCount, &t.TotalQuestions, &t.Attempts)
	if err != nil {
		return nil, err
	}
	if t.TotalQuestions > 0 {
		t.CorrectRate = float64(t.CorrectCount) / float64(t.TotalQuestions)
	}
	return t, nil
}
