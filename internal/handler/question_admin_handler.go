package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nebc/quizhub-backend/internal/grading"
	"github.com/nebc/quizhub-backend/internal/model"
	"github.com/nebc/quizhub-backend/internal/response"
	"github.com/nebc/quizhub-backend/internal/service"
	"github.com/nebc/quizhub-backend/internal/validator"
)

// QuestionAdminHandler handles question bank management endpoints.
type QuestionAdminHandler struct {
	questionService *service.QuestionService
}

// NewQuestionAdminHandler creates a new QuestionAdminHandler.
func NewQuestionAdminHandler(questionService *service.QuestionService) *QuestionAdminHandler {
	return &QuestionAdminHandler{questionService: questionService}
}

func failQuestion(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, grading.ErrAnswerShape), errors.Is(err, grading.ErrOptionBounds):
		response.Fail(c, http.StatusBadRequest, response.ErrAnswerShape)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

func questionIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("questionId"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

// List godoc
// GET /api/v1/admin/questions?group_type=&trash=&page=&per_page=
func (h *QuestionAdminHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))
	trash := c.Query("trash") == "true"

	questions, pagination, err := h.questionService.List(c.Request.Context(), c.Query("group_type"), trash, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"questions": questions}, pagination)
}

// Get godoc
// GET /api/v1/admin/questions/:questionId
func (h *QuestionAdminHandler) Get(c *gin.Context) {
	id, ok := questionIDParam(c)
	if !ok {
		return
	}

	question, err := h.questionService.Get(c.Request.Context(), id)
	if err != nil {
		failQuestion(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"question": question})
}

// Create godoc
// POST /api/v1/admin/questions
func (h *QuestionAdminHandler) Create(c *gin.Context) {
	var req model.CreateQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	question, err := h.questionService.Create(c.Request.Context(), &req)
	if err != nil {
		failQuestion(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"question": question})
}

// Update godoc
// PUT /api/v1/admin/questions/:questionId
func (h *QuestionAdminHandler) Update(c *gin.Context) {
	id, ok := questionIDParam(c)
	if !ok {
		return
	}

	var req model.UpdateQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	question, err := h.questionService.Update(c.Request.Context(), id, &req)
	if err != nil {
		failQuestion(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"question": question})
}

// Trash godoc
// DELETE /api/v1/admin/questions/:questionId
func (h *QuestionAdminHandler) Trash(c *gin.Context) {
	id, ok := questionIDParam(c)
	if !ok {
		return
	}

	if err := h.questionService.Trash(c.Request.Context(), id); err != nil {
		failQuestion(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"trashed": true})
}

// Restore godoc
// POST /api/v1/admin/questions/:questionId/restore
func (h *QuestionAdminHandler) Restore(c *gin.Context) {
	id, ok := questionIDParam(c)
	if !ok {
		return
	}

	if err := h.questionService.Restore(c.Request.Context(), id); err != nil {
		failQuestion(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"restored": true})
}
