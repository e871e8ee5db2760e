package server

import (
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"choreo-backend/internal/auth"
	"choreo-backend/internal/cache"
	"choreo-backend/internal/config"
	"choreo-backend/internal/database"
	"choreo-backend/internal/handler"
	"choreo-backend/internal/service"
)

const shutdownTimeout = 30 * time.Second

// Server Fiber server wrapper
type Server struct {
	app           *fiber.App
	cfg           *config.Config
	redis         *cache.RedisStorage
	tokens        *auth.TokenManager
	authHandler   *handler.AuthHandler
	danceHandler  *handler.DanceHandler
	healthHandler *handler.HealthHandler
}

// New creates the server. redis may be nil, in which case rate limits are
// kept in memory.
func New(cfg *config.Config, store *database.Store, redis *cache.RedisStorage) *Server {
	app := fiber.New(fiber.Config{
		AppName:       "Choreo API",
		StrictRouting: false,
		CaseSensitive: true,
		ReadTimeout:   cfg.Server.ReadTimeout,
		WriteTimeout:  cfg.Server.WriteTimeout,
		IdleTimeout:   cfg.Server.IdleTimeout,
		BodyLimit:     1 * 1024 * 1024,
	})

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)
	credentials := service.NewCredentialService(store.Credentials, auth.NewPasswordHasher(cfg.Auth.BcryptCost))
	dances := service.NewDanceService(store.Dances, cfg.Dance.EnforceInvariants)

	var redisPinger handler.Pinger
	if redis != nil {
		redisPinger = redis
	}

	return &Server{
		app:           app,
		cfg:           cfg,
		redis:         redis,
		tokens:        tokens,
		authHandler:   handler.NewAuthHandler(credentials, tokens),
		danceHandler:  handler.NewDanceHandler(dances),
		healthHandler: handler.NewHealthHandler(store, redisPinger),
	}
}

// App exposes the fiber app, mainly for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

// SetupMiddleware installs recover, access logging and CORS
func (s *Server) SetupMiddleware() {
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	s.app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${ip} | ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	s.app.Use(cors.New(cors.Config{
		AllowOrigins: s.cfg.CORS.AllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
}

// SetupRoutes registers every route
func (s *Server) SetupRoutes() {
	s.app.Get("/health", s.healthHandler.Check)
	s.app.Get("/health/live", s.healthHandler.Liveness)
	s.app.Get("/health/ready", s.healthHandler.Readiness)

	// brute force protection on credential endpoints
	limiterConfig := limiter.Config{
		Max:        s.cfg.Auth.RateLimit,
		Expiration: s.cfg.Auth.RateWindow,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "limiter:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":   "Too Many Requests",
				"message": "too many requests, please try again later",
			})
		},
	}
	if s.redis != nil {
		limiterConfig.Storage = s.redis
	}
	authLimiter := limiter.New(limiterConfig)

	authGroup := s.app.Group("/auth", authLimiter)
	authGroup.Post("/register", s.authHandler.Register)
	authGroup.Post("/login", s.authHandler.Login)

	danceGroup := s.app.Group("/api/dances", auth.AuthMiddleware(s.tokens))
	danceGroup.Get("/", s.danceHandler.List)
	danceGroup.Post("/", s.danceHandler.Create)
	danceGroup.Get("/:id", s.danceHandler.Get)
	danceGroup.Put("/:id", s.danceHandler.Update)
	danceGroup.Delete("/:id", s.danceHandler.Delete)
	danceGroup.Post("/:id/formations", s.danceHandler.AddFormation)
	danceGroup.Put("/:id/formations/:fid", s.danceHandler.UpdateFormation)
	danceGroup.Delete("/:id/formations/:fid", s.danceHandler.DeleteFormation)

	if dir := s.cfg.Server.StaticDir; dir != "" {
		s.setupStatic(dir)
	}
}

// setupStatic serves the built frontend and falls back to index.html for
// client side routes.
func (s *Server) setupStatic(dir string) {
	s.app.Static("/", dir)

	index := filepath.Join(dir, "index.html")
	s.app.Get("/*", func(c *fiber.Ctx) error {
		if strings.HasPrefix(c.Path(), "/api/") || strings.HasPrefix(c.Path(), "/auth/") {
			return fiber.ErrNotFound
		}
		return c.SendFile(index)
	})
	log.Info("Serving static frontend", "dir", dir)
}

// Start listens until SIGINT/SIGTERM, then shuts down gracefully
func (s *Server) Start() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("Shutting down server...")
		if err := s.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			log.Error("Server shutdown error", "err", err)
		}
	}()

	log.Info("Choreo API starting", "port", s.cfg.Server.Port, "store", s.cfg.Store.Driver, "strict", s.cfg.Dance.EnforceInvariants)

	return s.app.Listen(s.cfg.Server.Port)
}

// Shutdown stops the server
func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(shutdownTimeout)
}
