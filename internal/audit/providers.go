// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package audit

import (
	"strings"

	"github.com/olegiv/ocms-audit/internal/i18n"
	"github.com/olegiv/ocms-audit/internal/model"
)

// Provider contributes one event category and its display descriptors.
// Providers that also implement RecordingHandler take part in recording.
type Provider interface {
	Describe(lang string) model.CategoryDescriptor
}

// Registry resolves (category, name) pairs to display descriptors through
// the registered providers. Lookups are pure and allocation-light; the
// registry is populated at startup and read-only afterwards.
type Registry struct {
	providers []Provider
}

// NewRegistry creates a registry with the given providers.
func NewRegistry(providers ...Provider) *Registry {
	return &Registry{providers: providers}
}

// Register adds a provider. Wire providers during startup; Register is not
// safe to call concurrently with lookups.
func (r *Registry) Register(p Provider) {
	r.providers = append(r.providers, p)
}

// Providers returns the registered providers in registration order.
func (r *Registry) Providers() []Provider { return r.providers }

// Describe resolves a descriptor in the default language. Unknown pairs
// fall back to the raw names so display never fails.
func (r *Registry) Describe(category, name string) model.EventDescriptor {
	return r.DescribeIn(i18n.DefaultLanguage, category, name)
}

// DescribeIn resolves a descriptor in the given language.
func (r *Registry) DescribeIn(lang, category, name string) model.EventDescriptor {
	for _, p := range r.providers {
		cd := p.Describe(lang)
		if !strings.EqualFold(cd.Name, category) {
			continue
		}
		for _, ed := range cd.Events {
			if strings.EqualFold(ed.Name, name) {
				return ed
			}
		}
		// known category, unregistered event name
		return model.EventDescriptor{
			Category:            cd.Name,
			Name:                name,
			DisplayName:         name,
			CategoryDisplayName: cd.DisplayName,
		}
	}
	return model.EventDescriptor{
		Category:            category,
		Name:                name,
		DisplayName:         name,
		CategoryDisplayName: category,
	}
}

// Categories lists all category descriptors in the default language.
func (r *Registry) Categories() []model.CategoryDescriptor {
	return r.CategoriesIn(i18n.DefaultLanguage)
}

// CategoriesIn lists all category descriptors in the given language.
func (r *Registry) CategoriesIn(lang string) []model.CategoryDescriptor {
	out := make([]model.CategoryDescriptor, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p.Describe(lang))
	}
	return out
}

// categoryProvider is the shared shape of the built-in providers.
type categoryProvider struct {
	name       string
	displayKey string
	events     []string
}

func (p categoryProvider) Describe(lang string) model.CategoryDescriptor {
	cd := model.CategoryDescriptor{
		Name:        p.name,
		DisplayName: i18n.T(lang, "audit.category."+p.displayKey),
	}
	for _, name := range p.events {
		cd.Events = append(cd.Events, model.EventDescriptor{
			Category:            p.name,
			Name:                name,
			DisplayName:         i18n.T(lang, "audit.event."+p.displayKey+"."+strings.ToLower(name)),
			CategoryDisplayName: cd.DisplayName,
		})
	}
	return cd
}

// NewContentEventProvider describes the Content category: the lifecycle
// events recorded about content items.
func NewContentEventProvider() Provider {
	return categoryProvider{
		name:       model.EventCategoryContent,
		displayKey: "content",
		events: []string{
			model.ContentEventCreated,
			model.ContentEventSaved,
			model.ContentEventPublished,
			model.ContentEventUnpublished,
			model.ContentEventRemoved,
			model.ContentEventCloned,
			model.ContentEventRestored,
		},
	}
}

// NewUserEventProvider describes the User category.
func NewUserEventProvider() Provider {
	return categoryProvider{
		name:       model.EventCategoryUser,
		displayKey: "user",
		events: []string{
			model.UserEventLoggedIn,
			model.UserEventLoggedOut,
			model.UserEventLoginFailed,
			model.UserEventCreated,
			model.UserEventDeleted,
		},
	}
}

// NewSystemEventProvider describes the System category used by the log tee.
func NewSystemEventProvider() Provider {
	return categoryProvider{
		name:       model.EventCategorySystem,
		displayKey: "system",
		events:     []string{model.SystemEventLogged},
	}
}
