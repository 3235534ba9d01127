package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/nebc/quizhub-backend/internal/model"
	"github.com/nebc/quizhub-backend/internal/response"
	"github.com/nebc/quizhub-backend/internal/service"
	"github.com/nebc/quizhub-backend/internal/validator"
)

// ExamAdminHandler handles exam management endpoints.
type ExamAdminHandler struct {
	examService   *service.ExamService
	resultService *service.ResultService
}

// NewExamAdminHandler creates a new ExamAdminHandler.
func NewExamAdminHandler(examService *service.ExamService, resultService *service.ResultService) *ExamAdminHandler {
	return &ExamAdminHandler{examService: examService, resultService: resultService}
}

func failExam(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrExamWindow):
		response.Fail(c, http.StatusBadRequest, response.ErrExamWindow)
	case errors.Is(err, service.ErrUnknownQuestion):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// List godoc
// GET /api/v1/admin/exams?group_type=&trash=&page=&per_page=
func (h *ExamAdminHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))
	trash := c.Query("trash") == "true"

	exams, pagination, err := h.examService.List(c.Request.Context(), c.Query("group_type"), trash, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"exams": exams}, pagination)
}

// Get godoc
// GET /api/v1/admin/exams/:examId
func (h *ExamAdminHandler) Get(c *gin.Context) {
	id, ok := examIDParam(c)
	if !ok {
		return
	}

	exam, err := h.examService.Get(c.Request.Context(), id)
	if err != nil {
		failExam(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// Create godoc
// POST /api/v1/admin/exams
func (h *ExamAdminHandler) Create(c *gin.Context) {
	var req model.CreateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.Create(c.Request.Context(), &req)
	if err != nil {
		failExam(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"exam": exam})
}

// Update godoc
// PUT /api/v1/admin/exams/:examId
func (h *ExamAdminHandler) Update(c *gin.Context) {
	id, ok := examIDParam(c)
	if !ok {
		return
	}

	var req model.UpdateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.Update(c.Request.Context(), id, &req)
	if err != nil {
		failExam(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// Trash godoc
// DELETE /api/v1/admin/exams/:examId
func (h *ExamAdminHandler) Trash(c *gin.Context) {
	id, ok := examIDParam(c)
	if !ok {
		return
	}

	if err := h.examService.Trash(c.Request.Context(), id); err != nil {
		failExam(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"trashed": true})
}

// Restore godoc
// POST /api/v1/admin/exams/:examId/restore
func (h *ExamAdminHandler) Restore(c *gin.Context) {
	id, ok := examIDParam(c)
	if !ok {
		return
	}

	if err := h.examService.Restore(c.Request.Context(), id); err != nil {
		failExam(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"restored": true})
}

// Results godoc
// GET /api/v1/admin/exams/:examId/results
// Graded views of every submitted attempt; release gating does not apply.
func (h *ExamAdminHandler) Results(c *gin.Context) {
	id, ok := examIDParam(c)
	if !ok {
		return
	}

	results, err := h.resultService.ExamResults(c.Request.Context(), id)
	if err != nil {
		failExam(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"results": results})
}

// Distribution godoc
// GET /api/v1/admin/exams/:examId/distribution
// Per-question answer spread over all submitted attempts.
func (h *ExamAdminHandler) Distribution(c *gin.Context) {
	id, ok := examIDParam(c)
	if !ok {
		return
	}

	dists, err := h.resultService.Distribution(c.Request.Context(), id)
	if err != nil {
		failExam(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"distribution": dists})
}
