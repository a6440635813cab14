package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"database/sql"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/nvoronin/card-ledger/internal/config"
	"github.com/nvoronin/card-ledger/internal/crypto"
	"github.com/nvoronin/card-ledger/internal/handler"
	"github.com/nvoronin/card-ledger/internal/middleware"
	"github.com/nvoronin/card-ledger/internal/models"
	"github.com/nvoronin/card-ledger/internal/repository"
	"github.com/nvoronin/card-ledger/internal/service"
	"github.com/nvoronin/card-ledger/internal/utils/email"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	// Initialize layers
	enc, err := crypto.NewEncryptor(cfg.EncryptionKey)
	if err != nil {
		logger.Fatalf("Failed to initialize encryptor: %v", err)
	}
	store := repository.NewPostgresStore(db)
	userSvc := service.NewUserService(store, logger)
	cardSvc := service.NewCardService(store, enc, logger)
	transferSvc := service.NewTransferService(store, cardSvc, logger)
	historySvc := service.NewHistoryService(store)
	var sender *email.Sender
	if cfg.EmailEnabled() {
		sender = email.NewSender(cfg, logger)
	}
	requestSvc := service.NewBlockRequestService(store, cardSvc, userSvc, sender, logger)
	h := handler.NewHandler(cfg, userSvc, cardSvc, transferSvc, requestSvc, historySvc, logger)

	// Setup router
	r := mux.NewRouter()
	r.Use(middleware.RequestID(logger))
	// Public routes
	r.HandleFunc("/api/auth/login", h.Login).Methods("POST")
	// Protected routes
	authRouter := r.PathPrefix("/api").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(cfg))

	adminOnly := middleware.RequireRole(models.RoleAdmin)
	admin := authRouter.NewRoute().Subrouter()
	admin.Use(adminOnly)
	admin.HandleFunc("/users", h.CreateUser).Methods("POST")
	admin.HandleFunc("/users", h.ListUsers).Methods("GET")
	admin.HandleFunc("/cards", h.CreateCard).Methods("POST")
	admin.HandleFunc("/cards/all", h.GetAllCards).Methods("GET")
	admin.HandleFunc("/cards/{id}/block", h.BlockCard).Methods("POST")
	admin.HandleFunc("/cards/{id}/activate", h.ActivateCard).Methods("POST")
	admin.HandleFunc("/cards/{id}", h.DeleteCard).Methods("DELETE")
	admin.HandleFunc("/block-requests", h.GetBlockRequests).Methods("GET")
	admin.HandleFunc("/block-requests/{id}/process", h.ProcessBlockRequest).Methods("POST")

	authRouter.HandleFunc("/cards", h.GetUserCards).Methods("GET")
	authRouter.HandleFunc("/cards/{id}/transfers", h.GetCardTransfers).Methods("GET")
	authRouter.HandleFunc("/cards/{id}/history", h.GetCardHistory).Methods("GET")
	authRouter.HandleFunc("/transfers", h.CreateTransfer).Methods("POST")
	authRouter.HandleFunc("/block-requests", h.CreateBlockRequest).Methods("POST")
	authRouter.HandleFunc("/block-requests/my", h.GetMyBlockRequests).Methods("GET")

	// Schedule the expired-card sweep
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.ExpirySweepSpec, func() {
		if _, err := cardSvc.BlockExpiredCards(context.Background()); err != nil {
			logger.Errorf("Expiry sweep failed: %v", err)
		}
	}); err != nil {
		logger.Fatalf("Failed to schedule expiry sweep: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	logger.Infof("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
}
