package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mfisuite/lending-engine/internal/audit"
	"github.com/mfisuite/lending-engine/internal/config"
	"github.com/mfisuite/lending-engine/internal/observability"
	"github.com/mfisuite/lending-engine/internal/policy"
	"github.com/mfisuite/lending-engine/internal/repository"
	"github.com/mfisuite/lending-engine/internal/service"
)

// systemActor attributes scheduler-driven transitions in the audit trail.
var systemActor = uuid.Nil

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := observability.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	loanRepo := repository.NewLoanRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	txManager := repository.NewTxManager(db)
	creditPolicy := policy.FromConfig(cfg)
	recorder := audit.NewZapRecorder(logger)

	loanService := service.NewLoanService(loanRepo, paymentRepo, txManager, redisClient, creditPolicy, recorder, logger)

	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		logger.Fatal("invalid scheduler timezone", zap.String("timezone", cfg.Scheduler.Timezone), zap.Error(err))
	}

	c := cron.New(cron.WithSeconds(), cron.WithLocation(loc))

	_, err = c.AddFunc(cfg.Scheduler.DefaultCheckSpec, func() {
		runDefaultDetection(loanService, logger)
	})
	if err != nil {
		logger.Fatal("failed to schedule default detection job", zap.Error(err))
	}

	c.Start()
	logger.Info("scheduler started", zap.String("default_check_spec", cfg.Scheduler.DefaultCheckSpec))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down scheduler")
	<-c.Stop().Done()
	logger.Info("scheduler stopped")
}

// runDefaultDetection marks active loans defaulted once their missed
// consecutive weeks reach the delinquency threshold. Per-loan failures are
// logged and skipped so one bad row never stalls the sweep.
func runDefaultDetection(loans *service.LoanService, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	logger.Info("running default detection sweep")

	active, err := loans.ListActiveLoans(ctx)
	if err != nil {
		logger.Error("default detection: listing active loans failed", zap.Error(err))
		return
	}

	now := time.Now()
	defaulted := 0
	for _, loan := range active {
		missed, err := loans.MissedWeeks(ctx, loan.ID, now)
		if err != nil {
			logger.Error("default detection: missed-weeks check failed",
				zap.String("loan_id", loan.ID.String()), zap.Error(err))
			continue
		}
		if missed < loans.DelinquencyThreshold() {
			continue
		}

		if _, err := loans.MarkDefaulted(ctx, loan.ID, systemActor); err != nil {
			logger.Error("default detection: marking loan defaulted failed",
				zap.String("loan_id", loan.ID.String()), zap.Error(err))
			continue
		}
		defaulted++
		logger.Info("loan marked defaulted",
			zap.String("loan_id", loan.ID.String()), zap.Int("missed_weeks", missed))
	}

	logger.Info("default detection sweep finished",
		zap.Int("active_loans", len(active)), zap.Int("newly_defaulted", defaulted))
}
