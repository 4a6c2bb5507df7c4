package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mfisuite/lending-engine/internal/audit"
	"github.com/mfisuite/lending-engine/internal/config"
	"github.com/mfisuite/lending-engine/internal/domain"
	"github.com/mfisuite/lending-engine/internal/handler"
	"github.com/mfisuite/lending-engine/internal/observability"
	"github.com/mfisuite/lending-engine/internal/policy"
	"github.com/mfisuite/lending-engine/internal/repository"
	"github.com/mfisuite/lending-engine/internal/service"
	"github.com/mfisuite/lending-engine/pkg/response"
)

func main() {
	// .env is optional; real deployments set the environment directly
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

	db, err := initDB(cfg)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	redisClient := initRedis(cfg)
	defer redisClient.Close()

	// Repositories
	loanRepo := repository.NewLoanRepository(db)
	sheetRepo := repository.NewSheetRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	txManager := repository.NewTxManager(db)

	// Services
	creditPolicy := policy.FromConfig(cfg)
	recorder := audit.NewZapRecorder(logger)
	loanService := service.NewLoanService(loanRepo, paymentRepo, txManager, redisClient, creditPolicy, recorder, logger)
	sheetService := service.NewSheetService(sheetRepo, loanRepo, txManager, creditPolicy, recorder, logger)
	postingService := service.NewPostingService(sheetRepo, paymentRepo, loanService, txManager, recorder, logger)

	// Handlers
	loanHandler := handler.NewLoanHandler(loanService)
	sheetHandler := handler.NewSheetHandler(sheetService, postingService)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	router := setupRoutes(loanHandler, sheetHandler, healthHandler, logger)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func setupRoutes(loanHandler *handler.LoanHandler, sheetHandler *handler.SheetHandler, healthHandler *handler.HealthHandler, logger *zap.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.LoggingMiddleware(logger))

	// Health check
	router.HandleFunc("/health", healthHandler.Health).Methods("GET")
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods("GET")

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()

	// Loans
	api.HandleFunc("/loans/calculate", loanHandler.CalculateLoan).Methods("POST")
	api.HandleFunc("/loans", loanHandler.ApplyLoan).Methods("POST")
	api.HandleFunc("/loans/{loanId}", loanHandler.GetLoan).Methods("GET")
	api.HandleFunc("/loans/{loanId}/schedule", loanHandler.GetSchedule).Methods("GET")
	api.HandleFunc("/loans/{loanId}/outstanding", loanHandler.GetOutstanding).Methods("GET")
	api.HandleFunc("/loans/{loanId}/approve", loanHandler.Transition(domain.LoanOpApprove)).Methods("POST")
	api.HandleFunc("/loans/{loanId}/disburse", loanHandler.Transition(domain.LoanOpDisburse)).Methods("POST")
	api.HandleFunc("/loans/{loanId}/cancel", loanHandler.Transition(domain.LoanOpCancel)).Methods("POST")
	api.HandleFunc("/loans/{loanId}/restore", loanHandler.Transition(domain.LoanOpRestore)).Methods("POST")

	// Collection sheets
	api.HandleFunc("/sheets/draft", sheetHandler.CreateDraft).Methods("POST")
	api.HandleFunc("/sheets/{sheetId}", sheetHandler.GetSheet).Methods("GET")
	api.HandleFunc("/sheets/{sheetId}/items", sheetHandler.AddItem).Methods("POST")
	api.HandleFunc("/sheets/{sheetId}/items/{itemId}", sheetHandler.VoidItem).Methods("DELETE")
	api.HandleFunc("/sheets/{sheetId}/submit", sheetHandler.Submit).Methods("POST")
	api.HandleFunc("/sheets/{sheetId}/approve", sheetHandler.Approve).Methods("POST")
	api.HandleFunc("/sheets/{sheetId}/reject", sheetHandler.Reject).Methods("POST")
	api.HandleFunc("/sheets/{sheetId}/post", sheetHandler.Post).Methods("POST")

	return router
}
