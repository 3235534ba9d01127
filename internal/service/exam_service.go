package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/nebc/quizhub-backend/internal/config"
	"github.com/nebc/quizhub-backend/internal/grading"
	"github.com/nebc/quizhub-backend/internal/model"
	"github.com/nebc/quizhub-backend/internal/repository"
	"github.com/nebc/quizhub-backend/internal/response"
)

// Common exam errors.
var (
	ErrExamWindow      = errors.New("close time must not be before open time")
	ErrUnknownQuestion = errors.New("exam references an unknown question")
)

// paperTTL bounds staleness of the cached exam source between explicit
// invalidations.
const paperTTL = 10 * time.Minute

// PaperSource is the server-side cached form of an exam's questions, answer
// keys included. It never leaves the process unredacted.
type PaperSource struct {
	Exam      model.Exam       `json:"exam"`
	Questions []model.Question `json:"questions"`
	Scores    []int            `json:"scores"`
}

// ExamService handles exam assembly, the paper cache, and exam CRUD.
type ExamService struct {
	examRepo     *repository.ExamRepository
	questionRepo *repository.QuestionRepository
	attemptRepo  *repository.AttemptRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(
	examRepo *repository.ExamRepository,
	questionRepo *repository.QuestionRepository,
	attemptRepo *repository.AttemptRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *ExamService {
	return &ExamService{
		examRepo:     examRepo,
		questionRepo: questionRepo,
		attemptRepo:  attemptRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "exam_service").Logger(),
	}
}

// List retrieves exams with pagination and optional group filtering.
func (s *ExamService) List(ctx context.Context, groupType string, deleted bool, page, perPage int) ([]model.Exam, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	exams, total, err := s.examRepo.ListPaginated(ctx, groupType, deleted, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	if exams == nil {
		exams = []model.Exam{}
	}

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	}
	return exams, pagination, nil
}

// Get retrieves an exam with its question references.
func (s *ExamService) Get(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	return s.examRepo.GetByID(ctx, id)
}

// Create validates and stores a new exam.
func (s *ExamService) Create(ctx context.Context, req *model.CreateExamRequest) (*model.Exam, error) {
	exam := &model.Exam{
		Title:             req.Title,
		Description:       req.Description,
		GroupType:         model.GroupType(req.GroupType),
		OpenAt:            req.OpenAt,
		CloseAt:           req.CloseAt,
		AnswerAvailableAt: req.AnswerAvailableAt,
		TimeLimitMinutes:  req.TimeLimitMinutes,
	}
	questions, err := s.resolveQuestions(ctx, req.Questions)
	if err != nil {
		return nil, err
	}
	exam.Questions = questions

	if err := validateWindow(exam.OpenAt, exam.CloseAt); err != nil {
		return nil, err
	}
	if err := s.examRepo.Create(ctx, exam); err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}
	return exam, nil
}

// Update rewrites an exam, invalidates its cached paper, and flags submitted
// attempts for rescoring when the question list or weights change.
func (s *ExamService) Update(ctx context.Context, id uuid.UUID, req *model.UpdateExamRequest) (*model.Exam, error) {
	exam, err := s.examRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != "" {
		exam.Title = req.Title
	}
	if req.Description != nil {
		exam.Description = *req.Description
	}
	if req.GroupType != "" {
		exam.GroupType = model.GroupType(req.GroupType)
	}
	if req.OpenAt != nil {
		exam.OpenAt = req.OpenAt
	}
	if req.CloseAt != nil {
		exam.CloseAt = req.CloseAt
	}
	if req.AnswerAvailableAt != nil {
		exam.AnswerAvailableAt = req.AnswerAvailableAt
	}
	if req.TimeLimitMinutes != nil {
		exam.TimeLimitMinutes = req.TimeLimitMinutes
	}

	questionsChanged := req.Questions != nil
	if questionsChanged {
		questions, err := s.resolveQuestions(ctx, req.Questions)
		if err != nil {
			return nil, err
		}
		exam.Questions = questions
	}

	if err := validateWindow(exam.OpenAt, exam.CloseAt); err != nil {
		return nil, err
	}
	if err := s.examRepo.Update(ctx, exam); err != nil {
		return nil, fmt.Errorf("update exam: %w", err)
	}

	s.invalidatePaper(ctx, id)

	if questionsChanged {
		flagged, err := s.attemptRepo.MarkNeedsRescoreByExam(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("flag rescore: %w", err)
		}
		if err := s.rdb.RPush(ctx, config.WorkerKey.RescoreQueue, id.String()).Err(); err != nil {
			s.log.Warn().Err(err).Str("exam_id", id.String()).Msg("rescore enqueue failed")
		}
		if flagged > 0 {
			s.log.Info().Str("exam_id", id.String()).Int64("attempts", flagged).
				Msg("flagged attempts for rescore after exam edit")
		}
	}
	return exam, nil
}

// Trash soft-deletes an exam and drops its cached paper.
func (s *ExamService) Trash(ctx context.Context, id uuid.UUID) error {
	if err := s.examRepo.SetDeleted(ctx, id, true); err != nil {
		return err
	}
	s.invalidatePaper(ctx, id)
	return nil
}

// Restore brings an exam back from trash.
func (s *ExamService) Restore(ctx context.Context, id uuid.UUID) error {
	return s.examRepo.SetDeleted(ctx, id, false)
}

func (s *ExamService) resolveQuestions(ctx context.Context, refs []model.ExamQuestionRequest) ([]model.ExamQuestion, error) {
	ids := make([]uuid.UUID, 0, len(refs))
	questions := make([]model.ExamQuestion, 0, len(refs))
	for _, ref := range refs {
		qid, err := uuid.Parse(ref.QuestionID)
		if err != nil {
			return nil, ErrUnknownQuestion
		}
		ids = append(ids, qid)
		questions = append(questions, model.ExamQuestion{QuestionID: qid, Score: ref.Score})
	}

	found, err := s.questionRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve questions: %w", err)
	}
	for _, qid := range ids {
		if _, ok := found[qid]; !ok {
			return nil, ErrUnknownQuestion
		}
	}
	return questions, nil
}

func validateWindow(openAt, closeAt *time.Time) error {
	if openAt != nil && closeAt != nil && closeAt.Before(*openAt) {
		return ErrExamWindow
	}
	return nil
}

// Source loads the exam with its full questions, answer keys included, going
// through the Redis cache. Soft-deleted questions are skipped so they stop
// counting toward anyone's score.
func (s *ExamService) Source(ctx context.Context, examID uuid.UUID) (*PaperSource, error) {
	key := config.CacheKey.ExamPaperKey(examID.String())

	if cached, err := s.rdb.Get(ctx, key).Result(); err == nil {
		var src PaperSource
		if err := json.Unmarshal([]byte(cached), &src); err == nil {
			return &src, nil
		}
		s.log.Warn().Str("exam_id", examID.String()).Msg("corrupt cached paper, rebuilding")
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Msg("paper cache read failed, falling back to database")
	}

	src, err := s.buildSource(ctx, examID)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(src); err == nil {
		if err := s.rdb.Set(ctx, key, payload, paperTTL).Err(); err != nil {
			s.log.Warn().Err(err).Msg("paper cache write failed")
		}
	}
	return src, nil
}

func (s *ExamService) buildSource(ctx context.Context, examID uuid.UUID) (*PaperSource, error) {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(exam.Questions))
	for i, eq := range exam.Questions {
		ids[i] = eq.QuestionID
	}
	found, err := s.questionRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}

	src := &PaperSource{Exam: *exam}
	for _, eq := range exam.Questions {
		q, ok := found[eq.QuestionID]
		if !ok || q.Deleted {
			continue
		}
		src.Questions = append(src.Questions, *q)
		src.Scores = append(src.Scores, eq.Score)
	}
	return src, nil
}

// Paper renders the answer-stripped view of an exam for a taker. Ordering
// questions get a fresh shuffled arrangement on every call, so the initial
// order never leaks the answer key and differs between takers.
func (s *ExamService) Paper(ctx context.Context, examID uuid.UUID) (*model.ExamPaper, error) {
	src, err := s.Source(ctx, examID)
	if err != nil {
		return nil, err
	}

	paper := &model.ExamPaper{
		ExamID:           src.Exam.ID,
		Title:            src.Exam.Title,
		Description:      src.Exam.Description,
		GroupType:        src.Exam.GroupType,
		TimeLimitMinutes: src.Exam.TimeLimitMinutes,
	}
	for i, q := range src.Questions {
		taker := model.QuestionForTaker{
			ID:           q.ID,
			Type:         q.Type,
			Prompt:       q.Prompt,
			Options:      q.Options,
			Left:         q.Left,
			Right:        q.Right,
			OrderOptions: q.OrderOptions,
			Score:        src.Scores[i],
		}
		switch q.Type {
		case model.QuestionTypeOrdering:
			var key []int
			if err := json.Unmarshal(q.Answer, &key); err != nil {
				return nil, fmt.Errorf("ordering key for %s: %w", q.ID, err)
			}
			taker.Presentation = grading.ShuffleOrder(len(q.OrderOptions), key)
		case model.QuestionTypeMatching:
			initial, err := json.Marshal(grading.InitialMatching(len(q.Left)))
			if err != nil {
				return nil, err
			}
			taker.InitialAnswer = initial
		}
		paper.Questions = append(paper.Questions, taker)
	}
	return paper, nil
}

// GradingEntries converts a paper source into the weighted entries the scorer
// consumes.
func (s *PaperSource) GradingEntries() []grading.Entry {
	entries := make([]grading.Entry, len(s.Questions))
	for i := range s.Questions {
		entries[i] = grading.Entry{Question: &s.Questions[i], Score: s.Scores[i]}
	}
	return entries
}

func (s *ExamService) invalidatePaper(ctx context.Context, examID uuid.UUID) {
	if err := s.rdb.Del(ctx, config.CacheKey.ExamPaperKey(examID.String())).Err(); err != nil {
		s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("paper cache invalidation failed")
	}
}

// Prewarm loads every active exam's paper source into the cache. Called once
// at startup so the first taker of each exam skips the cold path.
func (s *ExamService) Prewarm(ctx context.Context) {
	ids, err := s.examRepo.ListActiveIDs(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("prewarm skipped, listing exams failed")
		return
	}
	for _, id := range ids {
		if _, err := s.Source(ctx, id); err != nil {
			s.log.Warn().Err(err).Str("exam_id", id.String()).Msg("prewarm failed for exam")
		}
	}
	s.log.Info().Int("exams", len(ids)).Msg("exam paper cache prewarmed")
}
