// Command accrual runs one daily debt accrual pass and exits. It is meant
// to be invoked by cron or a scheduler once per calendar day.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/hakoware/api/internal/bankruptcy"
	"github.com/hakoware/api/internal/config"
	"github.com/hakoware/api/internal/database"
	"github.com/hakoware/api/internal/notification"
	"github.com/hakoware/api/pkg/logging"
)

func main() {
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

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	notifier := notification.NewService(notification.NewRepository(db))
	detector := bankruptcy.NewDetector(bankruptcy.NewRepository(db), notifier)

	report, err := detector.RunDailyAccrual(ctx, time.Now().UTC())
	if err != nil {
		slog.Error("accrual run failed", "error", err)
		os.Exit(1)
	}

	if len(report.Failures) > 0 {
		slog.Warn("accrual finished with failures",
			"run_id", report.RunID,
			"processed", report.Processed,
			"failures", len(report.Failures),
		)
		os.Exit(1)
	}

	slog.Info("accrual finished",
		"run_id", report.RunID,
		"processed", report.Processed,
		"new_bankruptcies", report.NewBankruptcies,
		"recurring_notices", report.RecurringNotices,
	)
}
