package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/nebc/quizhub-backend/internal/config"
	"github.com/nebc/quizhub-backend/internal/handler"
	"github.com/nebc/quizhub-backend/internal/middleware"
	"github.com/nebc/quizhub-backend/internal/response"
	"github.com/nebc/quizhub-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth        *handler.AuthHandler
	Portal      *handler.PortalHandler
	Leaderboard *handler.LeaderboardHandler
	Question    *handler.QuestionAdminHandler
	Exam        *handler.ExamAdminHandler
	WS          *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)

		// Authenticated profile routes
		auth.GET("/me",
			middleware.RequireUserJWT(authService),
			middleware.CheckUserSession(authService),
			handlers.Auth.Me)
		auth.PUT("/me",
			middleware.RequireUserJWT(authService),
			middleware.CheckUserSession(authService),
			handlers.Auth.UpdateProfile)
		auth.POST("/logout",
			middleware.RequireUserJWT(authService),
			middleware.CheckUserSession(authService),
			handlers.Auth.Logout)
	}

	// ─── 2. Portal Group (User JWT + Active Session) ───────────────────
	portalAPI := router.Group("/api/v1/portal")
	portalAPI.Use(middleware.RequireUserJWT(authService), middleware.CheckUserSession(authService))
	{
		portalAPI.GET("/exams", handlers.Portal.ListExams)
		portalAPI.POST("/exams/:examId/start", handlers.Portal.StartExam)
		portalAPI.GET("/exams/:examId/state", handlers.Portal.AttemptState)
		portalAPI.PUT("/exams/:examId/answers", handlers.Portal.SaveAnswer)
		portalAPI.POST("/exams/:examId/submit", handlers.Portal.Submit)
		portalAPI.POST("/exams/:examId/confirm", handlers.Portal.Confirm)
		portalAPI.POST("/exams/:examId/cancel", handlers.Portal.Cancel)
		portalAPI.GET("/exams/:examId/result", handlers.Portal.MyResult)
		portalAPI.GET("/exams/:examId/leaderboard", handlers.Leaderboard.ForExam)

		portalAPI.GET("/leaderboard", handlers.Leaderboard.Global)
		portalAPI.GET("/me/totals", handlers.Leaderboard.MyTotals)

		portalAPI.PUT("/questions/:questionId/favorite", handlers.Portal.SetFavorite)
		portalAPI.GET("/favorites", handlers.Portal.ListFavorites)
	}

	// ─── 3. WebSocket Group (User WS Auth) ─────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireUserWSAuth(authService), middleware.CheckUserSession(authService))
	{
		ws.GET("/exams/:examId/stream", handlers.WS.AttemptStream)
	}

	// ─── 4. Admin Group (Admin JWT) ────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		// Question management
		adminAPI.GET("/questions", handlers.Question.List)
		adminAPI.POST("/questions", handlers.Question.Create)
		adminAPI.GET("/questions/:questionId", handlers.Question.Get)
		adminAPI.PUT("/questions/:questionId", handlers.Question.Update)
		adminAPI.DELETE("/questions/:questionId", handlers.Question.Trash)
		adminAPI.POST("/questions/:questionId/restore", handlers.Question.Restore)

		// Exam management
		adminAPI.GET("/exams", handlers.Exam.List)
		adminAPI.POST("/exams", handlers.Exam.Create)
		adminAPI.GET("/exams/:examId", handlers.Exam.Get)
		adminAPI.PUT("/exams/:examId", handlers.Exam.Update)
		adminAPI.DELETE("/exams/:examId", handlers.Exam.Trash)
		adminAPI.POST("/exams/:examId/restore", handlers.Exam.Restore)
		adminAPI.GET("/exams/:examId/results", handlers.Exam.Results)
		adminAPI.GET("/exams/:examId/distribution", handlers.Exam.Distribution)
	}

	return router
}
