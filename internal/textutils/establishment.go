// Package textutils provides text extraction and manipulation utilities.
package textutils

import (
	"regexp"
	"strings"
	"sync"
)

// genericSplit keeps the part of a description before the first hyphen or
// the first digit run preceded by a space.
var genericSplit = regexp.MustCompile(`\s*-\s*|\s+\d`)

// EstablishmentRules maps a lower-cased institution id to the ordered
// regexps stripped from descriptions before the generic split. It is safe
// for concurrent use.
type EstablishmentRules struct {
	mu    sync.RWMutex
	rules map[string][]*regexp.Regexp
}

// NewEstablishmentRules returns a registry holding the built-in institution
// rules.
func NewEstablishmentRules() *EstablishmentRules {
	r := &EstablishmentRules{rules: make(map[string][]*regexp.Regexp)}
	r.MustRegister("nubank",
		`(?i)^(Compra no débito|Compra no crédito|PIX|TED)\s*-?\s*`,
		`\s*-\s*\d{2}/\d{2}$`,
	)
	r.MustRegister("inter", `\s*-\s*\d+/\d+.*$`)
	return r
}

// Register compiles patterns and appends them to the institution's rules.
func (r *EstablishmentRules) Register(institution string, patterns ...string) error {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return err
		}
		compiled = append(compiled, re)
	}

	key := strings.ToLower(strings.TrimSpace(institution))
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[key] = append(r.rules[key], compiled...)
	return nil
}

// MustRegister is like Register but panics on an invalid pattern.
func (r *EstablishmentRules) MustRegister(institution string, patterns ...string) {
	if err := r.Register(institution, patterns...); err != nil {
		panic(err)
	}
}

// Institutions lists the institutions that have rules.
func (r *EstablishmentRules) Institutions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.rules))
	for k := range r.rules {
		out = append(out, k)
	}
	return out
}

// Extract derives the establishment name from a transaction description.
// It never fails: when nothing is left after the split the cleaned
// description is returned.
func (r *EstablishmentRules) Extract(description, institution string) string {
	cleaned := description

	r.mu.RLock()
	rules := r.rules[strings.ToLower(strings.TrimSpace(institution))]
	r.mu.RUnlock()
	for _, re := range rules {
		cleaned = re.ReplaceAllString(cleaned, "")
	}

	first := strings.TrimSpace(genericSplit.Split(cleaned, 2)[0])
	if first == "" {
		return strings.TrimSpace(cleaned)
	}
	return first
}

var defaultRules = NewEstablishmentRules()

// ExtractEstablishment applies the default registry.
func ExtractEstablishment(description, institution string) string {
	return defaultRules.Extract(description, institution)
}

// RegisterInstitution adds strip rules for an institution to the default
// registry.
func RegisterInstitution(institution string, patterns ...string) error {
	return defaultRules.Register(institution, patterns...)
}
