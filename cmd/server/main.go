package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/farebook/internal/config"
	"github.com/mamadbah2/farebook/internal/repository"
	appsscriptrepo "github.com/mamadbah2/farebook/internal/repository/appsscript"
	"github.com/mamadbah2/farebook/internal/repository/mongodb"
	"github.com/mamadbah2/farebook/internal/repository/sheets"
	"github.com/mamadbah2/farebook/internal/scheduler"
	"github.com/mamadbah2/farebook/internal/server/handlers"
	"github.com/mamadbah2/farebook/internal/server/router"
	actionsvc "github.com/mamadbah2/farebook/internal/service/actions"
	approvalsvc "github.com/mamadbah2/farebook/internal/service/approval"
	authsvc "github.com/mamadbah2/farebook/internal/service/auth"
	entrysvc "github.com/mamadbah2/farebook/internal/service/entries"
	exportsvc "github.com/mamadbah2/farebook/internal/service/export"
	reportingsvc "github.com/mamadbah2/farebook/internal/service/reporting"
	whatsappsvc "github.com/mamadbah2/farebook/internal/service/whatsapp"
	appsscriptclient "github.com/mamadbah2/farebook/pkg/clients/appsscript"
	whatsappclient "github.com/mamadbah2/farebook/pkg/clients/whatsapp"
	"github.com/mamadbah2/farebook/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Server.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	// The web forms send and expect plain JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	loc, err := time.LoadLocation(cfg.Reporting.Timezone)
	if err != nil {
		baseLogger.Fatal("invalid timezone", zap.Error(err))
	}

	sheetsRepo, err := sheets.NewGoogleSheetRepository(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
	if err != nil {
		baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
	}
	userStore := sheets.NewUserStore(sheetsRepo, baseLogger.Named("repo.users"))

	var entryStore repository.EntryStore
	switch cfg.Storage.Backend {
	case config.BackendAppsScript:
		scriptClient := appsscriptclient.NewClient(cfg.AppsScript)
		entryStore = appsscriptrepo.NewEntryStore(scriptClient, baseLogger.Named("repo.appsscript"))
	default:
		entryStore = sheets.NewEntryStore(sheetsRepo, baseLogger.Named("repo.entries"))
	}
	baseLogger.Info("entry storage selected", zap.String("backend", cfg.Storage.Backend))

	var archive repository.SnapshotArchive
	if cfg.MongoDB.URI != "" {
		mongoRepo, err := mongodb.NewMongoDBRepository(context.Background(), cfg.MongoDB.URI, cfg.MongoDB.DBName)
		if err != nil {
			baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
		}
		defer func() {
			if err := mongoRepo.Close(context.Background()); err != nil {
				baseLogger.Error("failed to close mongodb connection", zap.Error(err))
			}
		}()
		archive = mongoRepo
	} else {
		baseLogger.Warn("MONGODB_URI not set, summary snapshots will not be archived")
	}

	var (
		notifier  approvalsvc.Notifier
		sender    scheduler.ReportSender
		notifyAPI *handlers.NotifyHandler
	)
	if cfg.WhatsApp.Enabled() {
		whatsClient := whatsappclient.NewClient(cfg.WhatsApp)
		messagingSvc := whatsappsvc.NewMetaWhatsAppService(cfg.WhatsApp, whatsClient, baseLogger.Named("svc.whatsapp"))
		notifier = messagingSvc
		sender = messagingSvc
		notifyAPI = handlers.NewNotifyHandler(messagingSvc, baseLogger.Named("handlers.notify"))
		baseLogger.Info("whatsapp notifications enabled")
	} else {
		baseLogger.Warn("whatsapp not configured, notifications disabled")
	}

	authService := authsvc.NewService(userStore, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, baseLogger.Named("svc.auth"))
	// Edits, deletes and status changes read-check-write the same rows.
	entryLock := &sync.Mutex{}
	entryService := entrysvc.NewService(entryStore, entryLock, baseLogger.Named("svc.entries"))
	approvalService := approvalsvc.NewService(entryStore, entryLock, notifier, baseLogger.Named("svc.approval"))
	reportingService := reportingsvc.NewService(entryStore, archive, loc, baseLogger.Named("svc.reporting"))
	exportService := exportsvc.NewService(entryService, baseLogger.Named("svc.export"))
	dispatcher := actionsvc.NewDispatcher(entryService, approvalService, reportingService, baseLogger.Named("svc.actions"))

	engine := router.New(router.Handlers{
		Auth:    handlers.NewAuthHandler(authService, baseLogger.Named("handlers.auth")),
		Entries: handlers.NewEntryHandler(entryService, approvalService, baseLogger.Named("handlers.entries")),
		Reports: handlers.NewReportHandler(reportingService, exportService, baseLogger.Named("handlers.reports")),
		Actions: handlers.NewActionHandler(dispatcher, baseLogger.Named("handlers.actions")),
		Notify:  notifyAPI,
	}, authService, baseLogger.Named("router"))

	sched, err := scheduler.NewScheduler(cfg.Reporting, reportingService, sender, baseLogger.Named("scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
	sched.Stop(shutdownCtx)
}
