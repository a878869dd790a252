package compiler

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/vhvplatform/go-billing-notifier/internal/domain"
)

const (
	templateIDPrefix = "tpl_"
	maxSlugLen       = 48
)

// slugify lowercases the name and collapses every run of non-alphanumeric
// characters into a single underscore, trimmed and capped at maxSlugLen.
func slugify(name string) string {
	var b strings.Builder
	lastUnderscore := true // swallow leading separators
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}

	slug := strings.Trim(b.String(), "_")
	if len(slug) > maxSlugLen {
		slug = strings.Trim(slug[:maxSlugLen], "_")
	}
	return slug
}

// templateID derives a stable id from the template name and resolves
// collisions against the environment with numeric suffixes (_2, _3, ...).
// A linear scan is fine at admin-catalog scale.
func templateID(name string, cfg *domain.NotificationConfig) string {
	base := templateIDPrefix + slugify(name)
	if !cfg.HasTemplateID(base) {
		return base
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s_%d", base, n)
		if !cfg.HasTemplateID(candidate) {
			return candidate
		}
	}
}

// ruleID returns a random unique rule identifier. Random rather than
// time-derived, so rapid successive creations cannot collide.
func ruleID() string {
	return "rul_" + uuid.NewString()
}
