package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nebc/quizhub-backend/internal/middleware"
	"github.com/nebc/quizhub-backend/internal/model"
	"github.com/nebc/quizhub-backend/internal/response"
	"github.com/nebc/quizhub-backend/internal/service"
)

// LeaderboardHandler serves ranking endpoints.
type LeaderboardHandler struct {
	leaderboardService *service.LeaderboardService
}

// NewLeaderboardHandler creates a new LeaderboardHandler.
func NewLeaderboardHandler(leaderboardService *service.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboardService: leaderboardService}
}

// ForExam godoc
// GET /api/v1/portal/exams/:examId/leaderboard?sort=score|correct_rate&limit=
func (h *LeaderboardHandler) ForExam(c *gin.Context) {
	examID, ok := examIDParam(c)
	if !ok {
		return
	}
	sort := model.ParseLeaderboardSort(c.DefaultQuery("sort", "score"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	standings, err := h.leaderboardService.ForExam(c.Request.Context(), examID, sort, limit)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"standings": standings})
}

// Global godoc
// GET /api/v1/portal/leaderboard?sort=score|correct_rate&limit=
func (h *LeaderboardHandler) Global(c *gin.Context) {
	sort := model.ParseLeaderboardSort(c.DefaultQuery("sort", "score"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	standings, err := h.leaderboardService.Global(c.Request.Context(), sort, limit)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"standings": standings})
}

// MyTotals godoc
// GET /api/v1/portal/me/totals
// Returns the caller's lifetime aggregate over submitted attempts.
func (h *LeaderboardHandler) MyTotals(c *gin.Context) {
	claims := middleware.GetClaims(c)

	totals, err := h.leaderboardService.MyTotals(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, totals)
}
