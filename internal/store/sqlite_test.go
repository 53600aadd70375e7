package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ashureev/planchat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "nested", "planchat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPreferenceRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	got, err := s.GetPreference(ctx, "device-1", "theme")
	require.NoError(t, err)
	assert.Nil(t, got)

	ts := time.Unix(1_700_000_000, 0)
	require.NoError(t, s.SetPreference(ctx, domain.Preference{DeviceID: "device-1", Key: "theme", Value: "dark", UpdatedAt: ts}))

	got, err = s.GetPreference(ctx, "device-1", "theme")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "dark", got.Value)
	assert.Equal(t, ts, got.UpdatedAt)

	require.NoError(t, s.SetPreference(ctx, domain.Preference{DeviceID: "device-1", Key: "theme", Value: "light"}))
	got, err = s.GetPreference(ctx, "device-1", "theme")
	require.NoError(t, err)
	assert.Equal(t, "light", got.Value)
}

func TestPreferencesAreScopedByDevice(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetPreference(ctx, domain.Preference{DeviceID: "a", Key: "theme", Value: "dark"}))
	require.NoError(t, s.SetPreference(ctx, domain.Preference{DeviceID: "b", Key: "theme", Value: "light"}))

	got, err := s.GetPreference(ctx, "a", "theme")
	require.NoError(t, err)
	assert.Equal(t, "dark", got.Value)

	got, err = s.GetPreference(ctx, "c", "theme")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = s.GetPreference(ctx, "b", "theme")
	require.NoError(t, err)
	assert.Equal(t, "light", got.Value)
}

func TestSetPreferenceRequiresKey(t *testing.T) {
	s := newTestStore(t)
	assert.Error(t, s.SetPreference(context.Background(), domain.Preference{DeviceID: "a"}))
}

func TestPing(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}
