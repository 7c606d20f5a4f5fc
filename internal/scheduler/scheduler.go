// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs the periodic maintenance jobs of the audit trail:
// retention cleanup and GeoIP database reloads.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/olegiv/ocms-audit/internal/geoip"
	"github.com/olegiv/ocms-audit/internal/service"
)

// Scheduler owns the cron runner and its jobs.
type Scheduler struct {
	cron      *cron.Cron
	retention *service.RetentionService
	geo       *geoip.Lookup
	logger    *slog.Logger
}

// Options configures which jobs run and when. Empty specs fall back to the
// defaults; retention and geo may be nil to disable their jobs.
type Options struct {
	// RetentionSpec is the cron spec for retention cleanup.
	// Defaults to daily at 03:10.
	RetentionSpec string

	// GeoIPReloadSpec is the cron spec for reloading the GeoIP database.
	// Defaults to hourly.
	GeoIPReloadSpec string
}

// New creates a scheduler. Jobs whose dependency is nil are skipped.
func New(retention *service.RetentionService, geo *geoip.Lookup, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:      cron.New(),
		retention: retention,
		geo:       geo,
		logger:    logger,
	}
}

// Start registers the jobs and starts the cron runner.
func (s *Scheduler) Start(opts Options) error {
	if s.retention != nil {
		spec := opts.RetentionSpec
		if spec == "" {
			spec = "10 3 * * *"
		}
		if _, err := s.cron.AddFunc(spec, s.runRetention); err != nil {
			return err
		}
	}

	if s.geo != nil && s.geo.IsEnabled() {
		spec := opts.GeoIPReloadSpec
		if spec == "" {
			spec = "0 * * * *"
		}
		if _, err := s.cron.AddFunc(spec, s.runGeoReload); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
	return nil
}

// Stop stops the runner and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) runRetention() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if _, err := s.retention.Cleanup(ctx); err != nil {
		s.logger.Error("retention cleanup failed", "error", err)
	}
}

func (s *Scheduler) runGeoReload() {
	if err := s.geo.Reload(); err != nil {
		s.logger.Error("geoip reload failed", "error", err)
	}
}
