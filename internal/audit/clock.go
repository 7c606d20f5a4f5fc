// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package audit

import "time"

// Clock supplies the current time to the manager and to relative-date filter
// resolution. Injected so tests can pin it.
type Clock interface {
	UtcNow() time.Time
	LocalNow() time.Time
}

type systemClock struct{}

func (systemClock) UtcNow() time.Time   { return time.Now().UTC() }
func (systemClock) LocalNow() time.Time { return time.Now() }

// SystemClock returns a Clock backed by the wall clock.
func SystemClock() Clock { return systemClock{} }
