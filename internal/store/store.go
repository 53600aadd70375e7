// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"github.com/ashureev/planchat/internal/domain"
)

// Repository persists client-side preferences per device.
type Repository interface {
	// GetPreference returns the stored preference, or nil when none is set.
	GetPreference(ctx context.Context, deviceID, key string) (*domain.Preference, error)

	// SetPreference creates or replaces a preference.
	SetPreference(ctx context.Context, pref domain.Preference) error

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
