// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package audit

import (
	"context"

	"github.com/mileusna/useragent"

	"github.com/olegiv/ocms-audit/internal/model"
)

// Event data keys written by the client enricher.
const (
	DataKeyClient   = "Client"
	DataKeyClientIP = "ClientIp"
	DataKeyCountry  = "Country"
)

// CountryResolver maps a client IP to an ISO country code. Empty means
// unknown.
type CountryResolver interface {
	LookupCountry(ip string) string
}

// ClientEnricher is a recording handler that adds request client metadata
// (parsed user agent, client IP, resolved country) to the event data bag.
// Enrichment is best-effort and never vetoes or fails a recording.
type ClientEnricher struct {
	geo CountryResolver
}

// NewClientEnricher creates a client enricher. geo may be nil to skip
// country resolution.
func NewClientEnricher(geo CountryResolver) *ClientEnricher {
	return &ClientEnricher{geo: geo}
}

// OnRecording implements RecordingHandler.
func (e *ClientEnricher) OnRecording(_ context.Context, rec *Recording) error {
	if rec.UserAgent != "" {
		ua := useragent.Parse(rec.UserAgent)
		client := model.NewData()
		client.Set("Browser", model.String(ua.Name))
		client.Set("Version", model.String(ua.Version))
		client.Set("OS", model.String(ua.OS))
		if ua.Mobile {
			client.Set("Mobile", model.Bool(true))
		}
		if ua.Bot {
			client.Set("Bot", model.Bool(true))
		}
		rec.Data.Set(DataKeyClient, model.Map(client))
	}

	if rec.ClientIP != "" {
		rec.Data.Set(DataKeyClientIP, model.String(rec.ClientIP))
		if e.geo != nil {
			if country := e.geo.LookupCountry(rec.ClientIP); country != "" {
				rec.Data.Set(DataKeyCountry, model.String(country))
			}
		}
	}

	return nil
}
