// Package theme persists the light/dark preference per device.
package theme

import (
	"context"
	"fmt"
	"sync"

	"github.com/ashureev/planchat/internal/domain"
	"github.com/ashureev/planchat/internal/store"
)

// Key is the preference key the theme is stored under.
const Key = "theme"

// Theme is the UI color scheme.
type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"
)

// Parse returns the theme named by s. Unknown values fall back to Light.
func Parse(s string) (Theme, bool) {
	switch Theme(s) {
	case Light:
		return Light, true
	case Dark:
		return Dark, true
	}
	return Light, false
}

// Toggled returns the opposite theme.
func (t Theme) Toggled() Theme {
	if t == Dark {
		return Light
	}
	return Dark
}

// Service reads and writes themes through a preference repository.
type Service struct {
	repo store.Repository
	// mu serializes toggles so two concurrent flips land on a defined value.
	mu sync.Mutex
}

// NewService creates a theme service.
func NewService(repo store.Repository) *Service {
	return &Service{repo: repo}
}

// Load returns the stored theme of a device, Light when none is stored.
func (s *Service) Load(ctx context.Context, deviceID string) (Theme, error) {
	pref, err := s.repo.GetPreference(ctx, deviceID, Key)
	if err != nil {
		return Light, fmt.Errorf("load theme: %w", err)
	}
	if pref == nil {
		return Light, nil
	}
	t, _ := Parse(pref.Value)
	return t, nil
}

// Set stores t for a device.
func (s *Service) Set(ctx context.Context, deviceID string, t Theme) error {
	if _, ok := Parse(string(t)); !ok {
		return fmt.Errorf("unknown theme %q", t)
	}
	if err := s.repo.SetPreference(ctx, domain.Preference{DeviceID: deviceID, Key: Key, Value: string(t)}); err != nil {
		return fmt.Errorf("save theme: %w", err)
	}
	return nil
}

// Toggle flips the stored theme of a device and returns the new value.
func (s *Service) Toggle(ctx context.Context, deviceID string) (Theme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.Load(ctx, deviceID)
	if err != nil {
		return current, err
	}
	next := current.Toggled()
	if err := s.Set(ctx, deviceID, next); err != nil {
		return current, err
	}
	return next, nil
}
