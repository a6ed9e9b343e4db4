// Package server sets up the HTTP server, router, and all route definitions.
//
// This is the composition root: New opens the database, builds the token
// service and Kakao client, the services on top of them, and the handlers
// on top of those. Nothing below this package constructs its own
// dependencies.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/yeogida/yeogida-backend/internal/auth"
	"github.com/yeogida/yeogida-backend/internal/config"
	"github.com/yeogida/yeogida-backend/internal/handler"
	"github.com/yeogida/yeogida-backend/internal/middleware"
	sqliteRepo "github.com/yeogida/yeogida-backend/internal/repository/sqlite"
	"github.com/yeogida/yeogida-backend/internal/service"
)

// Server represents the HTTP server and all its dependencies.
//
// The Server owns the database connection; Start closes it on shutdown.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	tokens *auth.TokenService
}

// New opens the database and wires every layer.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
		tokens: tokens,
	}
	s.setupRoutes()
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database.
func (s *Server) Close() error {
	return s.db.Close()
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET    /healthz
//	GET    /auth/login/kakao               → 307 to Kakao
//	GET    /auth/kakao/callback            → 303 to the frontend with ?code=
//	POST   /auth/kakao/login/process       → {access, refresh}
//	POST   /auth/token/refresh             → {access, refresh}
//	POST   /auth/token                     → staff password login
//	       /carpools, /reviews, /rankings  → public reads, bearer writes
//	       /courses, /users/me             → bearer only
//
// MIDDLEWARE ORDER MATTERS:
// RequestID first so the logger can print it; Recoverer inside Logger so a
// panic is logged as the 500 it becomes.
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// === Dependencies ===
	kakao := auth.NewKakaoProvider(auth.KakaoConfig{
		ClientID:     s.config.KakaoClientID,
		ClientSecret: s.config.KakaoClientSecret,
		RedirectURL:  s.config.KakaoRedirectURI,
	})

	authService := service.NewAuthService(s.db, kakao, s.tokens, auth.NewPasswordService(), s.logger)
	carpoolService := service.NewCarpoolService(s.db, s.logger)
	courseService := service.NewCourseService(s.db, s.db, s.logger)
	reviewService := service.NewReviewService(s.db, s.db, s.config.DevMode, s.logger)
	rankingService := service.NewRankingService(s.db, s.logger)
	accountService := service.NewAccountService(s.db, s.db, s.db, s.logger)

	authHandler := handler.NewAuthHandler(authService, s.config.FrontendLoginSuccessURI, s.logger)
	carpoolHandler := handler.NewCarpoolHandler(carpoolService, s.logger)
	courseHandler := handler.NewCourseHandler(courseService, s.logger)
	reviewHandler := handler.NewReviewHandler(reviewService, s.logger)
	rankingHandler := handler.NewRankingHandler(rankingService, s.logger)
	userHandler := handler.NewUserHandler(accountService, s.logger)

	requireAuth := auth.RequireAuth(s.tokens)
	optionalAuth := auth.OptionalAuth(s.tokens)

	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/auth", func(r chi.Router) {
		r.Get("/login/kakao", authHandler.HandleKakaoLogin)
		r.Get("/kakao/callback", authHandler.HandleKakaoCallback)
		r.Post("/kakao/login/process", authHandler.HandleLoginProcess)
		r.Post("/token/refresh", authHandler.HandleRefresh)
		r.Post("/token", authHandler.HandlePasswordLogin)
	})

	s.router.Route("/carpools", func(r chi.Router) {
		r.Get("/", carpoolHandler.HandleList)
		r.Get("/{id}", carpoolHandler.HandleGet)
		r.Post("/{id}/likes", carpoolHandler.HandleLike)
		r.Delete("/{id}/likes", carpoolHandler.HandleUnlike)
		r.Get("/{id}/comments", carpoolHandler.HandleListComments)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", carpoolHandler.HandleCreate)
			r.Patch("/{id}", carpoolHandler.HandleUpdate)
			r.Delete("/{id}", carpoolHandler.HandleDelete)
			r.Post("/{id}/comments", carpoolHandler.HandleAddComment)
			r.Delete("/{id}/comments/{commentId}", carpoolHandler.HandleDeleteComment)
		})
	})

	s.router.Route("/courses", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", courseHandler.HandleList)
		r.Post("/", courseHandler.HandleCreate)
		r.Get("/{id}", courseHandler.HandleGet)
		r.Post("/{id}/favorite", courseHandler.HandleFavorite)
		r.Delete("/{id}/favorite", courseHandler.HandleUnfavorite)
	})

	s.router.Route("/reviews", func(r chi.Router) {
		r.Get("/", reviewHandler.HandleList)
		r.Get("/{id}", reviewHandler.HandleGet)
		r.Post("/{id}/likes", reviewHandler.HandleLike)
		r.Delete("/{id}/likes", reviewHandler.HandleUnlike)
		r.Get("/{id}/comments", reviewHandler.HandleListComments)
		r.With(optionalAuth).Post("/{id}/comments", reviewHandler.HandleAddComment)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", reviewHandler.HandleCreate)
			r.Patch("/{id}", reviewHandler.HandleUpdate)
			r.Delete("/{id}", reviewHandler.HandleDelete)
		})
	})

	s.router.Get("/rankings", rankingHandler.HandleList)

	s.router.Route("/users/me", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", userHandler.HandleMe)
		r.Patch("/", userHandler.HandleUpdate)
		r.Delete("/", userHandler.HandleDelete)
		r.Get("/favorites", userHandler.HandleFavorites)
		r.Get("/visited-regions", userHandler.HandleVisitedRegions)
		r.Post("/visited-regions", userHandler.HandleRecordVisit)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := s.db.Ping(ctx); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	w.Write([]byte(`{"status":"ok"}`))
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new HTTP connections
//  2. Wait for in-flight requests to finish (30s timeout)
//  3. Close the database connection (flushes WAL, releases file lock)
func (s *Server) Start() error {
	defer s.db.Close()

	// WriteTimeout leaves room for a login, which can spend 10s on the Kakao
	// token call and 5s on the profile call.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
			slog.Bool("devMode", s.config.DevMode),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
