package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/tracklog/internal/domain/models"
	"github.com/mamadbah2/tracklog/internal/service/export"
)

// DatasetSource provides the complete tracking log.
type DatasetSource interface {
	All() []models.InventoryCount
}

// Exporter builds a snapshot from counts.
type Exporter interface {
	Export(ctx context.Context, counts []models.InventoryCount) (export.Snapshot, error)
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron     *cron.Cron
	schedule string
	source   DatasetSource
	exporter Exporter
	sinks    []export.Sink
	logger   *zap.Logger
}

// NewScheduler creates a new scheduler instance. An empty schedule disables it.
func NewScheduler(schedule string, location *time.Location, source DatasetSource, exporter Exporter, sinks []export.Sink, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if location == nil {
		location = time.Local
	}

	// robfig/cron/v3 default parser is standard cron (5 fields: min, hour, dom, month, dow).
	c := cron.New(cron.WithLocation(location))

	return &Scheduler{
		cron:     c,
		schedule: schedule,
		source:   source,
		exporter: exporter,
		sinks:    sinks,
		logger:   logger,
	}
}

// Start starts the scheduler.
func (s *Scheduler) Start() {
	if s.schedule == "" || len(s.sinks) == 0 {
		s.logger.Info("snapshot scheduler disabled")
		return
	}

	s.logger.Info("starting scheduler", zap.String("schedule", s.schedule), zap.Int("sinks", len(s.sinks)))
	if _, err := s.cron.AddFunc(s.schedule, s.exportSnapshot); err != nil {
		s.logger.Error("failed to schedule snapshot export", zap.Error(err))
		return
	}

	s.cron.Start()
}

// Stop stops the scheduler and waits for a running job.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

// RunOnce exports the complete dataset to every sink.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	snap, err := s.exporter.Export(ctx, s.source.All())
	if err != nil {
		if errors.Is(err, export.ErrNothingToExport) {
			s.logger.Info("tracking log empty, snapshot skipped")
			return nil
		}
		return err
	}
	return export.Publish(ctx, snap, s.sinks, s.logger)
}

func (s *Scheduler) exportSnapshot() {
	s.logger.Info("exporting scheduled snapshot")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("scheduled snapshot failed", zap.Error(err))
	}
}
