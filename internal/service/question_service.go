package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/nebc/quizhub-backend/internal/config"
	"github.com/nebc/quizhub-backend/internal/grading"
	"github.com/nebc/quizhub-backend/internal/model"
	"github.com/nebc/quizhub-backend/internal/repository"
	"github.com/nebc/quizhub-backend/internal/response"
)

// QuestionService handles question bank business logic.
type QuestionService struct {
	questionRepo *repository.QuestionRepository
	examRepo     *repository.ExamRepository
	attemptRepo  *repository.AttemptRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(
	questionRepo *repository.QuestionRepository,
	examRepo *repository.ExamRepository,
	attemptRepo *repository.AttemptRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *QuestionService {
	return &QuestionService{
		questionRepo: questionRepo,
		examRepo:     examRepo,
		attemptRepo:  attemptRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "question_service").Logger(),
	}
}

// List retrieves questions with pagination and optional group filtering.
func (s *QuestionService) List(ctx context.Context, groupType string, deleted bool, page, perPage int) ([]model.Question, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	questions, total, err := s.questionRepo.ListPaginated(ctx, groupType, deleted, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	if questions == nil {
		questions = []model.Question{}
	}

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	}
	return questions, pagination, nil
}

// Get retrieves a single question.
func (s *QuestionService) Get(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	return s.questionRepo.GetByID(ctx, id)
}

// Create validates the answer key against the question shape and stores the
// question.
func (s *QuestionService) Create(ctx context.Context, req *model.CreateQuestionRequest) (*model.Question, error) {
	q := &model.Question{
		Type:         model.QuestionType(req.Type),
		GroupType:    model.GroupType(req.GroupType),
		Prompt:       req.Prompt,
		Explanation:  req.Explanation,
		Options:      req.Options,
		Left:         req.Left,
		Right:        req.Right,
		OrderOptions: req.OrderOptions,
		Answer:       req.Answer,
	}
	if err := grading.ValidateAnswerKey(q); err != nil {
		return nil, err
	}
	if err := s.questionRepo.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}
	return q, nil
}

// Update rewrites a question and flags every submitted attempt that touches
// it for rescoring. The question type is immutable.
func (s *QuestionService) Update(ctx context.Context, id uuid.UUID, req *model.UpdateQuestionRequest) (*model.Question, error) {
	q, err := s.questionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.GroupType != "" {
		q.GroupType = model.GroupType(req.GroupType)
	}
	if req.Prompt != "" {
		q.Prompt = req.Prompt
	}
	if req.Explanation != nil {
		q.Explanation = *req.Explanation
	}
	if req.Options != nil {
		q.Options = req.Options
	}
	if req.Left != nil {
		q.Left = req.Left
	}
	if req.Right != nil {
		q.Right = req.Right
	}
	if req.OrderOptions != nil {
		q.OrderOptions = req.OrderOptions
	}
	if req.Answer != nil {
		q.Answer = req.Answer
	}

	if err := grading.ValidateAnswerKey(q); err != nil {
		return nil, err
	}
	if err := s.questionRepo.Update(ctx, q); err != nil {
		return nil, fmt.Errorf("update question: %w", err)
	}

	if err := s.propagateEdit(ctx, id); err != nil {
		return nil, err
	}
	return q, nil
}

// Trash soft-deletes a question. Exams referencing it skip it from then on,
// so affected attempts are flagged for rescoring.
func (s *QuestionService) Trash(ctx context.Context, id uuid.UUID) error {
	if err := s.questionRepo.SetDeleted(ctx, id, true); err != nil {
		return err
	}
	return s.propagateEdit(ctx, id)
}

// Restore brings a question back from trash and flags affected attempts.
func (s *QuestionService) Restore(ctx context.Context, id uuid.UUID) error {
	if err := s.questionRepo.SetDeleted(ctx, id, false); err != nil {
		return err
	}
	return s.propagateEdit(ctx, id)
}

// propagateEdit flags submitted attempts for rescoring, drops stale cached
// papers, and queues background rescores for every exam using the question.
func (s *QuestionService) propagateEdit(ctx context.Context, questionID uuid.UUID) error {
	flagged, err := s.attemptRepo.MarkNeedsRescoreByQuestion(ctx, questionID)
	if err != nil {
		return fmt.Errorf("flag rescore: %w", err)
	}

	examIDs, err := s.examRepo.ListIDsByQuestion(ctx, questionID)
	if err != nil {
		return fmt.Errorf("list affected exams: %w", err)
	}
	for _, examID := range examIDs {
		if err := s.rdb.Del(ctx, config.CacheKey.ExamPaperKey(examID.String())).Err(); err != nil {
			s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("paper cache invalidation failed")
		}
		if err := s.rdb.RPush(ctx, config.WorkerKey.RescoreQueue, examID.String()).Err(); err != nil {
			s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("rescore enqueue failed")
		}
	}

	if flagged > 0 {
		s.log.Info().Str("question_id", questionID.String()).
			Int64("attempts", flagged).Int("exams", len(examIDs)).
			Msg("flagged attempts for rescore after question edit")
	}
	return nil
}
