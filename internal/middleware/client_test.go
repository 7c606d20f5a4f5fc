// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func captureClient(t *testing.T, prep func(*http.Request)) (ip, ua string) {
	t.Helper()
	handler := ClientInfo(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		ip = GetClientIP(r)
		ua = GetUserAgent(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin/events", nil)
	req.RemoteAddr = "192.0.2.10:54321"
	if prep != nil {
		prep(req)
	}
	handler.ServeHTTP(httptest.NewRecorder(), req)
	return ip, ua
}

func TestClientInfo_RemoteAddr(t *testing.T) {
	ip, _ := captureClient(t, nil)
	if ip != "192.0.2.10" {
		t.Errorf("ip = %q", ip)
	}
}

func TestClientInfo_XRealIPWins(t *testing.T) {
	ip, _ := captureClient(t, func(r *http.Request) {
		r.Header.Set("X-Real-IP", "203.0.113.5")
		r.Header.Set("X-Forwarded-For", "198.51.100.1, 10.0.0.1")
	})
	if ip != "203.0.113.5" {
		t.Errorf("ip = %q", ip)
	}
}

func TestClientInfo_ForwardedForFirstEntry(t *testing.T) {
	ip, _ := captureClient(t, func(r *http.Request) {
		r.Header.Set("X-Forwarded-For", "198.51.100.1, 10.0.0.1")
	})
	if ip != "198.51.100.1" {
		t.Errorf("ip = %q", ip)
	}
}

func TestClientInfo_UserAgent(t *testing.T) {
	_, ua := captureClient(t, func(r *http.Request) {
		r.Header.Set("User-Agent", "test-agent/1.0")
	})
	if ua != "test-agent/1.0" {
		t.Errorf("ua = %q", ua)
	}
}

func TestGetClientIP_WithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.20:1234"
	if ip := GetClientIP(req); ip != "192.0.2.20" {
		t.Errorf("ip = %q", ip)
	}
}
