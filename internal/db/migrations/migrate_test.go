package migrations

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func schemaSource(t *testing.T) string {
	t.Helper()
	dir, err := filepath.Abs(filepath.Join("..", "..", "..", "migrations"))
	require.NoError(t, err)
	return "file://" + dir
}

func TestSchemaVersionsArePaired(t *testing.T) {
	drv, err := source.Open(schemaSource(t))
	require.NoError(t, err)
	defer func() { _ = drv.Close() }()

	var versions []uint
	v, err := drv.First()
	for err == nil {
		versions = append(versions, v)

		up, _, upErr := drv.ReadUp(v)
		require.NoError(t, upErr, "version %d has no up file", v)
		body, readErr := io.ReadAll(up)
		_ = up.Close()
		require.NoError(t, readErr)
		assert.NotEmpty(t, body, "version %d up file is empty", v)

		down, _, downErr := drv.ReadDown(v)
		require.NoError(t, downErr, "version %d has no down file", v)
		_ = down.Close()

		v, err = drv.Next(v)
	}
	require.True(t, errors.Is(err, os.ErrNotExist), "unexpected error walking versions: %v", err)
	assert.Equal(t, []uint{1, 2, 3}, versions)
}

func TestOpenGivesUpAfterAttempts(t *testing.T) {
	_, err := Open(context.Background(), Options{
		Source:      "file://" + filepath.Join(t.TempDir(), "missing"),
		DatabaseURL: "postgres://localhost:1/vidbatch?sslmode=disable",
		Attempts:    2,
		Backoff:     time.Millisecond,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
}

func TestOpenStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := Open(ctx, Options{
		Source:      "file://" + filepath.Join(t.TempDir(), "missing"),
		DatabaseURL: "postgres://localhost:1/vidbatch?sslmode=disable",
		Attempts:    5,
		Backoff:     time.Hour,
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Minute)
}

func TestOptionsDefaults(t *testing.T) {
	opts := Options{}.withDefaults()
	assert.Equal(t, DefaultSource, opts.Source)
	assert.Equal(t, DefaultAttempts, opts.Attempts)
	assert.Equal(t, DefaultBackoff, opts.Backoff)

	custom := Options{Source: "file://schema", Attempts: 2, Backoff: time.Second}.withDefaults()
	assert.Equal(t, "file://schema", custom.Source)
	assert.Equal(t, 2, custom.Attempts)
	assert.Equal(t, time.Second, custom.Backoff)
}
