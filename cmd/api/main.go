package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/example/urbanfix/backend/internal/config"
	"github.com/example/urbanfix/backend/internal/db"
	httpserver "github.com/example/urbanfix/backend/internal/http"
	"github.com/example/urbanfix/backend/internal/logger"
	"github.com/example/urbanfix/backend/internal/models"
	"github.com/example/urbanfix/backend/internal/mq"
	"github.com/example/urbanfix/backend/internal/portal"
	"github.com/example/urbanfix/backend/internal/repository"
	"github.com/example/urbanfix/backend/internal/service"
	"github.com/example/urbanfix/backend/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logg := logger.New(cfg.LogLevel, cfg.Environment)

	database, err := db.New(cfg.DatabaseURL)
	if err != nil {
		logg.Fatalf("connect database: %v", err)
	}
	autoMigrate(database, logg.Fatalf)

	var publisher mq.Publisher
	publisher, err = mq.NewRabbitPublisher(cfg.MQURL, cfg.MQExchange)
	if err != nil {
		logg.Warnf("rabbitmq unavailable (%v), continuing without events", err)
		publisher = nil
	}

	financeClient := portal.NewFinanceClient(cfg.FinanceLoginURL, cfg.FinanceBaseURL, cfg.FinanceEmail, cfg.FinancePassword, cfg.PortalTimeout)
	citizenClient := portal.NewCitizenClient(cfg.CitizenPortalURL, cfg.CitizenPortalToken, cfg.PortalTimeout)
	notifyClient := portal.NewNotifyClient(cfg.NotifyURL, cfg.PortalTimeout)

	requests := repository.NewRequestRepository(database)
	lifecycle := service.NewLifecycleService(requests, financeClient, notifyClient, publisher, logg)
	reconcile := service.NewReconcileService(requests, financeClient, publisher, logg)
	citizen := service.NewCitizenReportService(requests, citizenClient)
	apiServer := httpserver.NewServer(lifecycle, reconcile, citizen, logg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sweeper := worker.NewReconcileWorker(requests, reconcile, cfg.ReconcileInterval, logg)
	go sweeper.Run(ctx)

	srv := &http.Server{
		Addr:    cfg.HTTPPort,
		Handler: apiServer.Engine,
	}

	go func() {
		logg.Infof("HTTP server listening on %s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	logg.Info("shutdown initiated")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Errorf("server shutdown error: %v", err)
	}

	if publisher != nil {
		if closer, ok := publisher.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
	}
	logg.Info("bye")
}

func autoMigrate(db *gorm.DB, fatalf func(string, ...any)) {
	if err := db.AutoMigrate(&models.MaintenanceRequest{}, &models.RequestResource{}); err != nil {
		fatalf("auto migrate: %v", err)
	}
}

func init() {
	if mode := os.Getenv("GIN_MODE"); mode == "" {
		gin.SetMode(gin.ReleaseMode)
	}
}
