package api

import (
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/calchat/scheduling-system/internal/api/handler"
	"github.com/calchat/scheduling-system/internal/api/middleware"
	"github.com/calchat/scheduling-system/internal/core/domain"
	"github.com/calchat/scheduling-system/internal/core/ports"
	"github.com/calchat/scheduling-system/internal/core/service"
	mongostore "github.com/calchat/scheduling-system/internal/infrastructure/db/mongo"
)

// Dependencies carries everything the router needs to assemble handlers.
type Dependencies struct {
	DB        *mongo.Database
	Redis     *redis.Client
	Store     ports.SchedulingStore
	Parser    ports.RequestParser
	Renderer  ports.ResponseRenderer
	Scheduler ports.SchedulingService
	JWTSecret string
	Logger    zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)
	e.Validator = handler.NewValidator()

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("scheduling"))

	// --- Dependencies ---
	authRepo := mongostore.NewAuthRepository(deps.DB)
	authService := service.NewAuthService(authRepo, deps.JWTSecret, 24*time.Hour)
	authHandler := handler.NewAuthHandler(authService)
	authMiddleware := middleware.Auth(deps.JWTSecret)

	chatHandler := handler.NewChatHandler(deps.Parser, deps.Scheduler, deps.Renderer, deps.Logger)
	appointmentHandler := handler.NewAppointmentHandler(deps.Scheduler, deps.Store)

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)

	// --- Scheduling routes ---
	v1 := e.Group("/v1", authMiddleware)
	v1.POST("/chat", chatHandler.Chat)
	v1.GET("/appointments", appointmentHandler.List)
	v1.GET("/workers", appointmentHandler.ListWorkers, middleware.RBAC(domain.RoleAdmin))

	// --- Health probes and metrics (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(deps.DB, deps.Redis)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())

	return e
}
