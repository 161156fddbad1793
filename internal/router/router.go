package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pageza/macrotrack/backend/internal/api"
	"github.com/pageza/macrotrack/backend/internal/middleware"
)

// Handlers groups the HTTP handlers served under /api/v1.
type Handlers struct {
	Auth          *api.AuthHandler
	Profile       *api.ProfileHandler
	Meals         *api.MealHandler
	Goals         *api.GoalHandler
	FrequentMeals *api.FrequentMealHandler
	Health        *api.HealthHandler
}

// Options carries everything the middleware chain needs.
type Options struct {
	Tokens         middleware.TokenValidator
	Users          middleware.UserStore
	Limiter        middleware.RateLimiter
	AllowedOrigins []string
	Logger         *zap.Logger
}

// SetupRouter configures the application routes
func SetupRouter(h Handlers, opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(
		middleware.Recovery(logger),
		middleware.RequestLogger(logger),
		middleware.CORS(opts.AllowedOrigins),
	)

	router.GET("/health", h.Health.HealthCheck)

	v1 := router.Group("/api/v1")
	v1.GET("/health", h.Health.HealthCheck)
	h.Auth.RegisterRoutes(v1)

	// Inference calls share one budget per user
	limited := middleware.RateLimit(opts.Limiter, logger)

	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(opts.Tokens), middleware.LoadUser(opts.Users, logger))
	{
		profile := protected.Group("/profile")
		{
			profile.GET("", h.Profile.GetProfile)
			profile.PUT("", h.Profile.CompleteProfile)
			profile.PUT("/api-key", h.Profile.SetAPIKey)
			profile.PUT("/photo", h.Profile.UploadPhoto)
			profile.DELETE("/photo", h.Profile.DeletePhoto)
		}

		protected.GET("/dashboard", h.Meals.Dashboard)
		protected.GET("/history", h.Meals.History)

		complete := protected.Group("")
		complete.Use(middleware.RequireCompleteProfile())

		meals := complete.Group("/meals")
		{
			meals.POST("", limited, h.Meals.LogMeal)
			meals.DELETE("/:id", h.Meals.DeleteMeal)
			meals.GET("/:id/insight", limited, h.Meals.GetInsight)
		}

		goals := complete.Group("/goals")
		{
			goals.GET("", h.Goals.ListGoals)
			goals.POST("", h.Goals.CreateGoal)
			goals.POST("/calculate", limited, h.Goals.CalculateGoal)
			goals.GET("/:id", h.Goals.GetGoal)
			goals.PUT("/:id", h.Goals.UpdateGoal)
			goals.DELETE("/:id", h.Goals.DeleteGoal)
			goals.POST("/:id/toggle", h.Goals.ToggleGoal)
		}

		frequent := complete.Group("/frequent-meals")
		{
			frequent.GET("", h.FrequentMeals.ListFrequentMeals)
			frequent.POST("", limited, h.FrequentMeals.CreateFrequentMeal)
			frequent.PUT("/:id", h.FrequentMeals.UpdateFrequentMeal)
			frequent.DELETE("/:id", h.FrequentMeals.DeleteFrequentMeal)
			frequent.POST("/:id/log", h.FrequentMeals.LogFrequentMeal)
		}
	}

	return router
}
