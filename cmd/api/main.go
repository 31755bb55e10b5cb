package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/hakoware/api/docs"
	"github.com/hakoware/api/internal/bankruptcy"
	"github.com/hakoware/api/internal/checkin"
	"github.com/hakoware/api/internal/config"
	"github.com/hakoware/api/internal/database"
	"github.com/hakoware/api/internal/friendship"
	"github.com/hakoware/api/internal/mercy"
	"github.com/hakoware/api/internal/notification"
	"github.com/hakoware/api/internal/settlement"
	"github.com/hakoware/api/internal/user"
	"github.com/hakoware/api/pkg/logging"
	mw "github.com/hakoware/api/pkg/middleware"
)

// @title Hakoware API
// @version 1.0
// @description Friendship debt accounting: check-ins, interest accrual, bankruptcy and mercy petitions.
// @BasePath /api/v1
func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg := config.Load()
	logging.Setup(cfg.LogLevel)

	db, err := database.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to database")

	// Friendship feature
	friendshipRepo := friendship.NewRepository(db)
	friendshipService := friendship.NewService(friendshipRepo)
	friendshipHandler := friendship.NewHandler(friendshipService)

	// User feature
	userRepo := user.NewRepository(db)
	userService := user.NewService(userRepo, friendshipRepo)
	userHandler := user.NewHandler(userService)

	// Notification feature
	notificationRepo := notification.NewRepository(db)
	notificationService := notification.NewService(notificationRepo)
	notificationHandler := notification.NewHandler(notificationService)

	// Check-in feature: the row-locked transactional path is primary, the
	// optimistic read-modify-write path is the fallback.
	checkinRepo := checkin.NewRepository(db)
	checkinProcessor := checkin.NewProcessor(
		checkin.NewTransactionalStrategy(checkinRepo),
		checkin.NewLocalStrategy(checkinRepo),
	)
	checkinHandler := checkin.NewHandler(checkinProcessor, checkinRepo, friendshipService)

	// Bankruptcy feature
	bankruptcyRepo := bankruptcy.NewRepository(db)
	detector := bankruptcy.NewDetector(bankruptcyRepo, notificationService)
	bankruptcyHandler := bankruptcy.NewHandler(detector, bankruptcyRepo)

	// Settlement feature
	settlementService := settlement.NewService(friendshipRepo, bankruptcyRepo, notificationService)
	settlementHandler := settlement.NewHandler(settlementService)

	// Mercy feature
	mercyRepo := mercy.NewRepository(db)
	mercyService := mercy.NewService(mercyRepo, friendshipRepo, settlementService, notificationService)
	mercyHandler := mercy.NewHandler(mercyService)

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(5 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/swagger/*", httpSwagger.WrapHandler)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Env == "production" {
			r.Use(mw.Auth(cfg.JWTSecret))
		} else {
			r.Use(mw.TestUserMiddleware)
		}

		r.Mount("/users", userHandler.Routes())
		r.Mount("/notifications", notificationHandler.Routes())
		r.Mount("/mercy", mercyHandler.Routes())
		r.Mount("/bankruptcies", bankruptcyHandler.Routes())

		r.Post("/accrual/run", bankruptcyHandler.RunAccrual)
		r.Get("/checkins/stats", checkinHandler.Stats)

		// The friendship tree is wired inline so its check-in, settlement
		// and mercy sub-resources stay with their own feature handlers.
		r.Route("/friendships", func(r chi.Router) {
			r.Post("/", friendshipHandler.Create)
			r.Get("/", friendshipHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", friendshipHandler.GetByID)
				r.Delete("/", friendshipHandler.Delete)
				r.Post("/recalculate", friendshipHandler.Recalculate)
				r.Post("/checkin", checkinHandler.Perform)
				r.Get("/checkins", checkinHandler.History)
				r.Post("/settle", settlementHandler.Settle)
				r.Post("/mercy", mercyHandler.Create)
			})
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	slog.Info("server starting", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
