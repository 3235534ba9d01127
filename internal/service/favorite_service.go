package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/nebc/quizhub-backend/internal/model"
	"github.com/nebc/quizhub-backend/internal/repository"
	"github.com/nebc/quizhub-backend/internal/response"
)

// FavoriteService handles per-user question bookmarks.
type FavoriteService struct {
	favoriteRepo *repository.FavoriteRepository
	questionRepo *repository.QuestionRepository
}

// NewFavoriteService creates a new FavoriteService.
func NewFavoriteService(favoriteRepo *repository.FavoriteRepository, questionRepo *repository.QuestionRepository) *FavoriteService {
	return &FavoriteService{favoriteRepo: favoriteRepo, questionRepo: questionRepo}
}

// Set marks or unmarks a question as favorite for the user.
func (s *FavoriteService) Set(ctx context.Context, userID, questionID uuid.UUID, favorite bool) error {
	if _, err := s.questionRepo.GetByID(ctx, questionID); err != nil {
		return err
	}
	return s.favoriteRepo.Set(ctx, userID, questionID, favorite)
}

// List retrieves the user's favorited questions with answer keys stripped.
func (s *FavoriteService) List(ctx context.Context, userID uuid.UUID, page, perPage int) ([]model.QuestionForTaker, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	questions, total, err := s.favoriteRepo.ListByUser(ctx, userID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}

	stripped := make([]model.QuestionForTaker, 0, len(questions))
	for _, q := range questions {
		stripped = append(stripped, model.QuestionForTaker{
			ID:           q.ID,
			Type:         q.Type,
			Prompt:       q.Prompt,
			Options:      q.Options,
			Left:         q.Left,
			Right:        q.Right,
			OrderOptions: q.OrderOptions,
		})
	}

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	}
	return stripped, pagination, nil
}
