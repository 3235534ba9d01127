package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/nebc/quizhub-backend/internal/model"
	"github.com/nebc/quizhub-backend/internal/repository"
)

// LeaderboardService serves ranking views. Ordering happens in SQL over the
// stored aggregates with a selectable primary key (total score or correct
// rate) and elapsed time ascending as the tie-break.
type LeaderboardService struct {
	attemptRepo *repository.AttemptRepository
	userRepo    *repository.UserRepository
}

// NewLeaderboardService creates a new LeaderboardService.
func NewLeaderboardService(attemptRepo *repository.AttemptRepository, userRepo *repository.UserRepository) *LeaderboardService {
	return &LeaderboardService{attemptRepo: attemptRepo, userRepo: userRepo}
}

// ForExam returns the per-exam ranking.
func (s *LeaderboardService) ForExam(ctx context.Context, examID uuid.UUID, sort model.LeaderboardSort, limit int) ([]model.ExamStanding, error) {
	if limit < 1 || limit > 500 {
		limit = 100
	}
	standings, err := s.attemptRepo.ExamStandings(ctx, examID, sort, limit)
	if err != nil {
		return nil, err
	}
	if standings == nil {
		standings = []model.ExamStanding{}
	}
	return standings, nil
}

// Global returns the all-time ranking across every submitted attempt.
func (s *LeaderboardService) Global(ctx context.Context, sort model.LeaderboardSort, limit int) ([]model.GlobalStanding, error) {
	if limit < 1 || limit > 500 {
		limit = 100
	}
	standings, err := s.attemptRepo.GlobalStandings(ctx, sort, limit)
	if err != nil {
		return nil, err
	}
	if standings == nil {
		standings = []model.GlobalStanding{}
	}
	return standings, nil
}

// MyTotals returns the caller's lifetime aggregate.
func (s *LeaderboardService) MyTotals(ctx context.Context, userID uuid.UUID) (*model.UserTotals, error) {
	return s.userRepo.LifetimeTotals(ctx, userID)
}
