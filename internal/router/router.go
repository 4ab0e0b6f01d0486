package router

import (
	"net/http"
	"time"

	"github.com/celts/celts-backend/internal/config"
	"github.com/celts/celts-backend/internal/handler"
	"github.com/celts/celts-backend/internal/middleware"
	"github.com/celts/celts-backend/internal/response"
	"github.com/celts/celts-backend/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth          *handler.AuthHandler
	StudentPortal *handler.StudentPortalHandler
	Security      *handler.SecurityHandler
	Test          *handler.TestHandler
	Grading       *handler.GradingHandler
	Monitor       *handler.MonitorHandler
	Media         *handler.MediaHandler
	Admin         *handler.AdminHandler
	WS            *handler.WSHandler
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

	// Serve uploaded media files statically with aggressive caching (1 year).
	uploadsGroup := router.Group("/uploads")
	uploadsGroup.Use(middleware.CacheControl(31536000))
	{
		uploadsGroup.Static("/", cfg.UploadDir)
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for the violation/heartbeat ingestion endpoints.
	securityLimiter := middleware.NewRateLimiter(cfg.SecurityRateLimit, cfg.SecurityRateWindow)

	// ─── 1. Auth Group (Public) ────────────────────────────────────────
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/student/login", handlers.Auth.StudentLogin)
		auth.POST("/staff/login", handlers.Auth.StaffLogin)

		// Authenticated profile routes
		auth.POST("/student/logout", middleware.RequireStudentJWT(authService), handlers.Auth.StudentLogout)
		auth.GET("/student/me", middleware.RequireStudentJWT(authService), handlers.Auth.GetStudentProfile)
		auth.GET("/staff/me", middleware.RequireStaffJWT(authService), handlers.Auth.GetStaffProfile)
	}

	// ─── 2. Student Group (JWT + Single Login) ─────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireStudentJWT(authService),
		middleware.CheckSingleLogin(authService),
	)
	{
		studentAPI.GET("/tests", handlers.StudentPortal.ListTests)
		studentAPI.GET("/tests/:id/paper", handlers.StudentPortal.GetPaper)
		studentAPI.GET("/attempts", handlers.StudentPortal.ListAttempts)
		studentAPI.POST("/attempts/:id/responses", handlers.StudentPortal.SaveResponse)
		studentAPI.GET("/attempts/:id/drafts", handlers.StudentPortal.GetDrafts)
		studentAPI.GET("/stats", handlers.StudentPortal.GetStats)
	}

	// ─── 3. Security Group (JWT + Single Login) ────────────────────────
	// Device sessions, exam lifecycle, and the proctoring event intake.
	securityAPI := router.Group("/api/v1/security")
	securityAPI.Use(
		middleware.RequireStudentJWT(authService),
		middleware.CheckSingleLogin(authService),
	)
	{
		securityAPI.POST("/session/start", handlers.Security.StartSession)
		securityAPI.POST("/session/validate", handlers.Security.ValidateSession)
		securityAPI.POST("/session/heartbeat", securityLimiter.Middleware(), handlers.Security.Heartbeat)
		securityAPI.POST("/session/end", handlers.Security.EndSession)
		securityAPI.GET("/session/recover", handlers.Security.RecoverSession)

		securityAPI.POST("/exam/start", handlers.Security.StartExam)
		securityAPI.POST("/exam/submit", handlers.Security.SubmitExam)
		securityAPI.POST("/exam/end", handlers.Security.EndExam)

		securityAPI.POST("/violations", securityLimiter.Middleware(), handlers.Security.ReportViolation)
		securityAPI.GET("/attempts/:attempt_id/status", handlers.Security.SecurityStatus)
		securityAPI.GET("/attempts/:attempt_id/time", handlers.Security.RemainingTime)
	}

	// ─── 4. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(authService))
	{
		ws.GET("/student/attempts/:attempt_id/stream", handlers.WS.AttemptStream)
	}

	// ─── 5. Staff Group (JWT, faculty + admin) ─────────────────────────
	staffAPI := router.Group("/api/v1/staff")
	staffAPI.Use(middleware.RequireStaffJWT(authService))
	{
		// Test authoring
		staffAPI.GET("/tests", handlers.Test.ListTests)
		staffAPI.POST("/tests", handlers.Test.CreateTest)
		staffAPI.GET("/tests/:id", handlers.Test.GetTest)
		staffAPI.PUT("/tests/:id", handlers.Test.UpdateTest)
		staffAPI.DELETE("/tests/:id", handlers.Test.DeleteTest)
		staffAPI.POST("/tests/:id/publish", handlers.Test.PublishTest)
		staffAPI.POST("/tests/:id/archive", handlers.Test.ArchiveTest)
		staffAPI.POST("/tests/:id/refresh-cache", handlers.Test.RefreshCache)
		staffAPI.GET("/tests/:id/questions", handlers.Test.ListQuestions)
		staffAPI.POST("/tests/:id/questions", handlers.Test.AddQuestion)

		// Live monitoring
		staffAPI.GET("/tests/:id/monitor", handlers.Monitor.MonitorTestSSE)
		staffAPI.GET("/tests/:id/monitor/snapshot", handlers.Monitor.GetSnapshot)
		staffAPI.GET("/attempts/:attempt_id/security", handlers.Security.SecurityStatusForStaff)

		// Grading queue
		staffAPI.GET("/grading/pending", handlers.Grading.ListPending)
		staffAPI.POST("/grading/:id/grade", handlers.Grading.GradeSubmission)
		staffAPI.POST("/grading/:id/override", handlers.Grading.OverrideSubmission)

		// Media upload
		staffAPI.POST("/media/upload", handlers.Media.UploadMedia)
	}

	// ─── 6. Admin Group (JWT + admin role) ─────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireStaffJWT(authService), middleware.RequireAdmin())
	{
		// Student account management
		adminAPI.GET("/students", handlers.Admin.ListStudents)
		adminAPI.POST("/students", handlers.Admin.CreateStudent)
		adminAPI.PUT("/students/:id", handlers.Admin.UpdateStudent)
		adminAPI.DELETE("/students/:id", handlers.Admin.DeleteStudent)
		adminAPI.POST("/students/:id/reset-login", handlers.Admin.ResetStudentLogin)
		adminAPI.POST("/students/:id/reset-session", handlers.Admin.ResetDeviceSessions)

		// Staff account management
		adminAPI.GET("/staff", handlers.Admin.ListStaff)
		adminAPI.POST("/staff", handlers.Admin.CreateStaff)
		adminAPI.DELETE("/staff/:id", handlers.Admin.DeleteStaff)

		// Proctoring escape hatch
		adminAPI.POST("/attempts/:id/allow-retry", handlers.Admin.AllowRetry)
	}

	return router
}
