// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for request context handling
// and rate limiting on the audit admin API.
package middleware

import (
	"context"
	"net/http"
	"strings"
)

// ContextKey is the type for values stored in the request context.
type ContextKey string

// Context keys for client metadata.
const (
	ContextKeyClientIP  ContextKey = "client_ip"
	ContextKeyUserAgent ContextKey = "user_agent"
)

// ClientInfo captures the caller's address and user agent into the request
// context so event recording can pick them up without touching the request.
func ClientInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = context.WithValue(ctx, ContextKeyClientIP, clientIP(r))
		ctx = context.WithValue(ctx, ContextKeyUserAgent, r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetClientIP returns the client address captured by ClientInfo, or the
// request's own address when the middleware did not run.
func GetClientIP(r *http.Request) string {
	if ip, ok := r.Context().Value(ContextKeyClientIP).(string); ok && ip != "" {
		return ip
	}
	return clientIP(r)
}

// GetUserAgent returns the user agent captured by ClientInfo.
func GetUserAgent(r *http.Request) string {
	if ua, ok := r.Context().Value(ContextKeyUserAgent).(string); ok {
		return ua
	}
	return r.UserAgent()
}

// clientIP extracts the client IP from the request, honoring reverse-proxy
// headers.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		// X-Forwarded-For can contain multiple IPs; take the first one
		if idx := strings.Index(ip, ","); idx > 0 {
			return strings.TrimSpace(ip[:idx])
		}
		return ip
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}
