// Package suggest maps partially typed input to example commands.
package suggest

import (
	"strings"
	"unicode/utf8"
)

const (
	// MaxResults caps the number of candidates returned.
	MaxResults = 3
	// minInputLen is the raw input length, in characters, at which matching starts.
	minInputLen = 3
)

// DefaultCatalogue lists the canonical example commands in display order.
var DefaultCatalogue = []string{
	`add subject "Math" hours 10 priority HIGH`,
	"set availability on 2025-12-20 capacity 8 hours",
	"list subjects",
	"generate schedule",
	"show schedule",
	"show history",
	"clear all",
}

// Engine matches input against a fixed catalogue.
type Engine struct {
	catalogue []string
	lowered   []string
}

// New builds an engine over catalogue. The slice is copied.
func New(catalogue []string) *Engine {
	e := &Engine{
		catalogue: append([]string(nil), catalogue...),
		lowered:   make([]string, len(catalogue)),
	}
	for i, c := range e.catalogue {
		e.lowered[i] = strings.ToLower(c)
	}
	return e
}

var defaultEngine = New(DefaultCatalogue)

// Suggest matches partial against the default catalogue.
func Suggest(partial string) []string {
	return defaultEngine.Suggest(partial)
}

// Suggest returns up to MaxResults catalogue entries containing partial,
// compared case-insensitively, in catalogue order. The input is not
// trimmed; inputs of two characters or fewer return an empty result.
func (e *Engine) Suggest(partial string) []string {
	out := []string{}
	if utf8.RuneCountInString(partial) < minInputLen {
		return out
	}
	needle := strings.ToLower(partial)
	for i, entry := range e.lowered {
		if !strings.Contains(entry, needle) {
			continue
		}
		out = append(out, e.catalogue[i])
		if len(out) == MaxResults {
			break
		}
	}
	return out
}

// Catalogue returns a copy of the engine's entries.
func (e *Engine) Catalogue() []string {
	return append([]string(nil), e.catalogue...)
}
