package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nebc/quizhub-backend/internal/middleware"
	"github.com/nebc/quizhub-backend/internal/model"
	"github.com/nebc/quizhub-backend/internal/response"
	"github.com/nebc/quizhub-backend/internal/service"
	"github.com/nebc/quizhub-backend/internal/validator"
)

// PortalHandler handles the exam-taking surface: starting attempts, answer
// capture, the submit state machine, and result views.
type PortalHandler struct {
	examService     *service.ExamService
	attemptService  *service.AttemptService
	resultService   *service.ResultService
	favoriteService *service.FavoriteService
}

// NewPortalHandler creates a new PortalHandler.
func NewPortalHandler(
	examService *service.ExamService,
	attemptService *service.AttemptService,
	resultService *service.ResultService,
	favoriteService *service.FavoriteService,
) *PortalHandler {
	return &PortalHandler{
		examService:     examService,
		attemptService:  attemptService,
		resultService:   resultService,
		favoriteService: favoriteService,
	}
}

// failAttempt maps attempt lifecycle errors onto response codes.
func failAttempt(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrExamNotOpen):
		response.Fail(c, http.StatusForbidden, response.ErrExamNotOpen)
	case errors.Is(err, service.ErrExamClosed):
		response.Fail(c, http.StatusForbidden, response.ErrExamClosed)
	case errors.Is(err, service.ErrAlreadySubmitted):
		response.Fail(c, http.StatusConflict, response.ErrAlreadySubmitted)
	case errors.Is(err, service.ErrNoActiveAttempt):
		response.Fail(c, http.StatusNotFound, response.ErrNoActiveAttempt)
	case errors.Is(err, service.ErrDeadlinePassed):
		response.Fail(c, http.StatusForbidden, response.ErrDeadlinePassed)
	case errors.Is(err, service.ErrNoConfirmPending):
		response.Fail(c, http.StatusConflict, response.ErrNoConfirmPending)
	case errors.Is(err, service.ErrResultsNotReady):
		response.Fail(c, http.StatusForbidden, response.ErrResultsNotReady)
	case errors.Is(err, service.ErrUnknownExamItem):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

func examIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("examId"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

// ListExams godoc
// GET /api/v1/portal/exams?group_type=&page=&per_page=
// Lists available exams for takers.
func (h *PortalHandler) ListExams(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	exams, pagination, err := h.examService.List(c.Request.Context(), c.Query("group_type"), false, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"exams": exams}, pagination)
}

// StartExam godoc
// POST /api/v1/portal/exams/:examId/start
// Opens or resumes the caller's attempt and returns the paper.
func (h *PortalHandler) StartExam(c *gin.Context) {
	examID, ok := examIDParam(c)
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)

	result, err := h.attemptService.Start(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		failAttempt(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// AttemptState godoc
// GET /api/v1/portal/exams/:examId/state
// Returns the resumable attempt view with the remaining countdown.
func (h *PortalHandler) AttemptState(c *gin.Context) {
	examID, ok := examIDParam(c)
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)

	state, err := h.attemptService.State(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		failAttempt(c, err)
		return
	}
	response.Success(c, http.StatusOK, state)
}

// SaveAnswer godoc
// PUT /api/v1/portal/exams/:examId/answers
// Captures a single answer on the fast lane.
func (h *PortalHandler) SaveAnswer(c *gin.Context) {
	examID, ok := examIDParam(c)
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)

	var req model.SaveAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.attemptService.SaveAnswer(c.Request.Context(), examID, claims.UserID, &req); err != nil {
		failAttempt(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"saved": true})
}

// Submit godoc
// POST /api/v1/portal/exams/:examId/submit
// Runs the submit state machine; may park in pending_confirm.
func (h *PortalHandler) Submit(c *gin.Context) {
	examID, ok := examIDParam(c)
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)

	var req model.SubmitRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	outcome, err := h.attemptService.Submit(c.Request.Context(), examID, claims.UserID, &req)
	if err != nil {
		failAttempt(c, err)
		return
	}
	response.Success(c, http.StatusOK, outcome)
}

// Confirm godoc
// POST /api/v1/portal/exams/:examId/confirm
// Finalizes an attempt parked in pending_confirm.
func (h *PortalHandler) Confirm(c *gin.Context) {
	examID, ok := examIDParam(c)
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)

	outcome, err := h.attemptService.Confirm(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		failAttempt(c, err)
		return
	}
	response.Success(c, http.StatusOK, outcome)
}

// Cancel godoc
// POST /api/v1/portal/exams/:examId/cancel
// Returns a pending_confirm attempt to in_progress.
func (h *PortalHandler) Cancel(c *gin.Context) {
	examID, ok := examIDParam(c)
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)

	if err := h.attemptService.Cancel(c.Request.Context(), examID, claims.UserID); err != nil {
		failAttempt(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": model.AttemptStatusInProgress})
}

// MyResult godoc
// GET /api/v1/portal/exams/:examId/result
// Returns the caller's graded result; details wait for the release time.
func (h *PortalHandler) MyResult(c *gin.Context) {
	examID, ok := examIDParam(c)
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)

	result, err := h.resultService.MyResult(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		failAttempt(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// SetFavorite godoc
// PUT /api/v1/portal/questions/:questionId/favorite
// Marks or unmarks a question as favorite.
func (h *PortalHandler) SetFavorite(c *gin.Context) {
	questionID, err := uuid.Parse(c.Param("questionId"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	claims := middleware.GetClaims(c)

	var req struct {
		Favorite bool `json:"favorite"`
	}
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.favoriteService.Set(c.Request.Context(), claims.UserID, questionID, req.Favorite); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"favorite": req.Favorite})
}

// ListFavorites godoc
// GET /api/v1/portal/favorites?page=&per_page=
// Lists the caller's favorited questions.
func (h *PortalHandler) ListFavorites(c *gin.Context) {
	claims := middleware.GetClaims(c)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	questions, pagination, err := h.favoriteService.List(c.Request.Context(), claims.UserID, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"questions": questions}, pagination)
}
