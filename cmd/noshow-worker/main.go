package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hackgods/care-scheduling/internal/app"
	"github.com/hackgods/care-scheduling/internal/appointment"
	"github.com/hackgods/care-scheduling/internal/config"
	"github.com/hackgods/care-scheduling/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("config load error")
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	log.WithFields(logrus.Fields{
		"env":      cfg.Env,
		"interval": cfg.WorkerInterval.String(),
		"grace":    cfg.NoShowGrace.String(),
	}).Info("noshow-worker starting up")

	if cfg.StorageDriver == config.StorageMemory {
		log.Warn("in-memory storage is private to this process, the sweep will find nothing")
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(rootCtx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("startup failed")
	}
	defer a.Close()

	// Run once at startup
	runOnce(rootCtx, a.Appointments, log)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info("shutdown signal received, stopping noshow worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, a.Appointments, log)
		}
	}
}

func runOnce(ctx context.Context, svc *appointment.Service, log logrus.FieldLogger) {
	runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	start := time.Now()
	marked, err := svc.SweepNoShows(runCtx)
	entry := log.WithFields(logrus.Fields{
		"marked":   marked,
		"duration": time.Since(start).String(),
	})
	if err != nil {
		entry.WithError(err).Error("noshow sweep failed")
		return
	}
	entry.Info("noshow sweep complete")
}
