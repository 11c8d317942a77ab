package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsStore_LastSyncAt_Unset(t *testing.T) {
	settings := NewSettingsStore(setupDB(t))

	at, err := settings.LastSyncAt(context.Background())
	require.NoError(t, err)
	assert.True(t, at.IsZero())
}

func TestSettingsStore_LastSyncAt_RoundTrip(t *testing.T) {
	ctx := context.Background()
	settings := NewSettingsStore(setupDB(t))

	first := time.Now().Add(-time.Hour)
	require.NoError(t, settings.SetLastSyncAt(ctx, first))

	got, err := settings.LastSyncAt(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.UnixMilli(), got.UnixMilli())

	// A later run overwrites the marker.
	second := time.Now()
	require.NoError(t, settings.SetLastSyncAt(ctx, second))

	got, err = settings.LastSyncAt(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.UnixMilli(), got.UnixMilli())
}
