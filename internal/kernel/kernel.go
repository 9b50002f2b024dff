// Package kernel wires a store, the schema validator and the services into
// one handle shared by the server and kernelctl.
package kernel

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Harshitk-cp/mindkernel/internal/config"
	"github.com/Harshitk-cp/mindkernel/internal/domain"
	"github.com/Harshitk-cp/mindkernel/internal/service"
	"github.com/Harshitk-cp/mindkernel/internal/store"
	"github.com/Harshitk-cp/mindkernel/internal/store/postgres"
	"github.com/Harshitk-cp/mindkernel/internal/store/sqlite"
	"github.com/Harshitk-cp/mindkernel/internal/validate"
)

type Kernel struct {
	Store     domain.Store
	Validator domain.Validator
	Audit     *service.AuditLog
	Pipeline  *service.PipelineService
	Scheduler *service.SchedulerService
	Worker    *service.JobWorker
	Sweeper   *service.ReviewSweeper

	cfg     *config.Config
	logger  *zap.Logger
	started bool
}

// Open connects the configured backend, applying migrations, and builds
// the services on top of it.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Kernel, error) {
	var backend store.TxBackend
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		b, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		backend = b
	case config.DriverSQLite:
		b, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.SQLitePath, err)
		}
		backend = b
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	logger.Info("store opened", zap.String("driver", cfg.StoreDriver))
	return New(store.New(backend), cfg, logger)
}

// New builds the services over an already opened store.
func New(st domain.Store, cfg *config.Config, logger *zap.Logger) (*Kernel, error) {
	v, err := validate.New()
	if err != nil {
		return nil, err
	}

	audit := service.NewAuditLog(st, v, logger)
	pipeline := service.NewPipelineService(st, v, audit, logger)
	if cfg.PipelineActor != "" {
		pipeline.SetActorID(cfg.PipelineActor)
	}
	sched := service.NewSchedulerService(st, v, audit, logger)

	worker := service.NewJobWorker(sched, pipeline, cfg.WorkerID, logger)
	worker.SetInterval(cfg.WorkerInterval)
	worker.SetBatch(cfg.WorkerBatch)
	worker.SetRetryPolicy(service.ExponentialRetry(cfg.RetryBaseDelay, cfg.RetryMaxDelay))

	sweeper := service.NewReviewSweeper(pipeline, sched, logger)
	sweeper.SetInterval(cfg.SweepInterval)

	return &Kernel{
		Store:     st,
		Validator: v,
		Audit:     audit,
		Pipeline:  pipeline,
		Scheduler: sched,
		Worker:    worker,
		Sweeper:   sweeper,
		cfg:       cfg,
		logger:    logger,
	}, nil
}

// Start launches the background workers enabled in the config.
func (k *Kernel) Start() {
	if k.started {
		return
	}
	k.started = true
	if k.cfg.WorkerEnabled {
		k.Worker.Start()
	}
	if k.cfg.SweepEnabled {
		k.Sweeper.Start()
	}
}

// Close stops the workers started by Start and closes the store.
func (k *Kernel) Close() error {
	if k.started {
		if k.cfg.WorkerEnabled {
			k.Worker.Stop()
		}
		if k.cfg.SweepEnabled {
			k.Sweeper.Stop()
		}
		k.started = false
	}
	return k.Store.Close()
}
