package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/stemsi/qbank-console/internal/config"
	"github.com/stemsi/qbank-console/internal/handler"
	"github.com/stemsi/qbank-console/internal/middleware"
	"github.com/stemsi/qbank-console/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth        *handler.AuthHandler
	Taxonomy    *handler.TaxonomyHandler
	Question    *handler.QuestionHandler
	Syllabus    *handler.SyllabusHandler
	Composition *handler.CompositionHandler
	Journal     *handler.JournalHandler
	WS          *handler.WSHandler
	System      *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	auth middleware.CreatorResolver,
	loginLimiter *middleware.RateLimiter,
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
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", handlers.System.Health)

	api := router.Group("/api/v1")

	// ─── 1. Auth (No Token) ────────────────────────────────────────────
	authPublic := api.Group("/auth")
	authPublic.Use(loginLimiter.Middleware())
	{
		authPublic.POST("/login", handlers.Auth.Login)
		authPublic.POST("/signup", handlers.Auth.Signup)
	}

	// ─── 2. Authenticated API ──────────────────────────────────────────
	protected := api.Group("")
	protected.Use(middleware.RequireBearer(auth))
	{
		protected.GET("/auth/me", handlers.Auth.Me)

		// ─── Taxonomy ───
		protected.GET("/taxonomy/boards", handlers.Taxonomy.Boards)
		protected.GET("/taxonomy/classes", handlers.Taxonomy.Classes)
		protected.GET("/taxonomy/subjects", handlers.Taxonomy.Subjects)
		protected.GET("/taxonomy/chapters", handlers.Taxonomy.Chapters)
		protected.GET("/taxonomy/topics", handlers.Taxonomy.Topics)

		// ─── Questions (standard mode) ───
		protected.GET("/questions", handlers.Question.List)
		protected.GET("/questions/template", handlers.Question.Template)
		protected.POST("/questions/validate", handlers.Question.Validate)
		protected.POST("/questions/compose", handlers.Question.Compose)
		protected.POST("/questions", handlers.Question.Submit)

		// ─── Syllabus ───
		protected.POST("/syllabus/select", handlers.Syllabus.Select)

		// ─── Compositions (parent/child mode) ───
		protected.POST("/compositions", handlers.Composition.Start)
		protected.GET("/compositions/:id", handlers.Composition.Get)
		protected.PUT("/compositions/:id/draft", handlers.Composition.UpdateDraft)
		protected.DELETE("/compositions/:id/draft", handlers.Composition.ResetChild)
		protected.POST("/compositions/:id/syllabus", handlers.Composition.ApplySelection)
		protected.POST("/compositions/:id/parent", handlers.Composition.CreateParent)
		protected.POST("/compositions/:id/children", handlers.Composition.AddChild)
		protected.POST("/compositions/:id/submit", handlers.Composition.SubmitAll)
		protected.DELETE("/compositions/:id", handlers.Composition.Discard)

		// ─── Journal ───
		protected.GET("/journal", handlers.Journal.List)
		protected.GET("/journal/orphans", handlers.Journal.Orphans)
	}

	// ─── 3. WebSocket (token in query) ─────────────────────────────────
	wsGroup := router.Group("/ws/v1")
	wsGroup.Use(middleware.RequireBearer(auth))
	{
		wsGroup.GET("/compositions/:id/events", handlers.WS.CompositionEvents)
	}

	return router
}
