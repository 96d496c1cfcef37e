package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/tracklog/internal/config"
	"github.com/mamadbah2/tracklog/internal/repository/blob"
	"github.com/mamadbah2/tracklog/internal/repository/sheets"
	"github.com/mamadbah2/tracklog/internal/scheduler"
	"github.com/mamadbah2/tracklog/internal/server/handlers"
	"github.com/mamadbah2/tracklog/internal/server/router"
	exportsvc "github.com/mamadbah2/tracklog/internal/service/export"
	"github.com/mamadbah2/tracklog/internal/service/tracking"
	"github.com/mamadbah2/tracklog/internal/store"
	"github.com/mamadbah2/tracklog/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		baseLogger.Fatal("invalid display timezone", zap.Error(err))
	}

	catalog, err := config.LoadCatalog(cfg.Catalog)
	if err != nil {
		baseLogger.Fatal("failed to load catalog", zap.Error(err))
	}

	countsStore, backend, err := store.Open(ctx, cfg, logger.Named(baseLogger, "store"))
	if err != nil {
		baseLogger.Fatal("failed to open store", zap.Error(err))
	}
	defer func() {
		if err := backend.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close store backend", zap.Error(err))
		}
	}()

	renderer := tracking.NewRenderer(catalog, loc)
	ctrl := tracking.NewController(countsStore, renderer, logger.Named(baseLogger, "svc.tracking"))
	if err := ctrl.Reload(ctx); err != nil {
		baseLogger.Fatal("failed to load tracking log", zap.Error(err))
	}
	if err := countsStore.OnExternalChange(ctx, ctrl.HandleExternalChange); err != nil {
		baseLogger.Warn("external change notifications unavailable", zap.Error(err))
	}

	exportSvc := exportsvc.NewService(countsStore, logger.Named(baseLogger, "svc.export"))
	trackingHandler := handlers.NewTrackingHandler(ctrl, exportSvc, catalog, logger.Named(baseLogger, "handlers.tracking"))
	engine := router.New(trackingHandler, cfg.Auth, logger.Named(baseLogger, "router"))

	// Initialize Scheduler
	sinks := snapshotSinks(ctx, cfg, baseLogger)
	sched := scheduler.NewScheduler(cfg.Export.CronSchedule, loc, ctrl, exportSvc, sinks, logger.Named(baseLogger, "scheduler"))
	sched.Start()
	defer sched.Stop()

	srv := router.NewServer(":"+cfg.Server.Port, engine)

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("backend", cfg.Store.Backend))
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
}

// snapshotSinks returns the configured destinations of scheduled snapshots.
// A sink that cannot be initialized is skipped.
func snapshotSinks(ctx context.Context, cfg *config.Config, log *zap.Logger) []exportsvc.Sink {
	var sinks []exportsvc.Sink

	if cfg.Export.Dir != "" {
		sinks = append(sinks, exportsvc.NewDirSink(cfg.Export.Dir))
	}

	if cfg.S3Enabled() {
		s3Store, err := blob.NewS3Store(ctx, cfg.S3, logger.Named(log, "repo.s3"))
		if err != nil {
			log.Error("failed to init s3 snapshot sink", zap.Error(err))
		} else {
			sinks = append(sinks, exportsvc.NewObjectSink(s3Store, cfg.Export.S3Prefix))
		}
	}

	if cfg.SheetsEnabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(ctx, cfg.Sheets, logger.Named(log, "repo.sheets"))
		if err != nil {
			log.Error("failed to init sheets snapshot sink", zap.Error(err))
		} else {
			sinks = append(sinks, exportsvc.NewSheetSink(sheetsRepo))
		}
	}

	return sinks
}
