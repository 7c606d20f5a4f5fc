// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"net/http"

	"github.com/olegiv/ocms-audit/internal/i18n"
)

// ContextKeyLanguage is the context key for the resolved language code.
const ContextKeyLanguage ContextKey = "language"

// Language resolves the response language from the Accept-Language header
// and stores its code in the request context. Unknown languages fall back
// to the default.
func Language(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lang := i18n.MatchLanguage(r.Header.Get("Accept-Language"))
		ctx := context.WithValue(r.Context(), ContextKeyLanguage, lang)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetLanguage returns the language code resolved for the request.
func GetLanguage(r *http.Request) string {
	if lang, ok := r.Context().Value(ContextKeyLanguage).(string); ok && lang != "" {
		return lang
	}
	return i18n.DefaultLanguage
}
