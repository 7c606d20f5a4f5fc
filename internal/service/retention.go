// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/ocms-audit/internal/audit"
	"github.com/olegiv/ocms-audit/internal/store"
)

// RetentionService trims old audit events. A retention period of 0 keeps
// events forever.
type RetentionService struct {
	store     *store.EventStore
	clock     audit.Clock
	retention time.Duration
	logger    *slog.Logger
}

// NewRetentionService creates a retention service keeping events for the
// given duration.
func NewRetentionService(st *store.EventStore, clock audit.Clock, retention time.Duration, logger *slog.Logger) *RetentionService {
	if clock == nil {
		clock = audit.SystemClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RetentionService{store: st, clock: clock, retention: retention, logger: logger}
}

// Cleanup deletes events older than the retention period and returns how
// many were removed. A no-op when retention is disabled.
func (s *RetentionService) Cleanup(ctx context.Context) (int64, error) {
	if s.retention <= 0 {
		return 0, nil
	}
	cutoff := s.clock.UtcNow().Add(-s.retention)
	deleted, err := s.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleaning up audit events: %w", err)
	}
	if deleted > 0 {
		s.logger.Info("audit retention cleanup", "deleted", deleted, "cutoff", cutoff.Format(time.RFC3339))
	}
	return deleted, nil
}
