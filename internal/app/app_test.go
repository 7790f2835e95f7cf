package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkit/server/internal/config"
	"github.com/parkit/server/internal/models"
)

func TestNew(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CONFIG_PATH", filepath.Join(dir, "missing.json"))
	t.Setenv("DATABASE_PATH", filepath.Join(dir, "parkit.db"))

	cfg, err := config.Load("")
	require.NoError(t, err)

	a, err := New(cfg)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, "sqlite", a.DBSystem)

	a.Start(context.Background())
	assert.Equal(t, models.StateNoRecord, a.Controller.Snapshot().State)
	assert.True(t, a.Guide.ShouldShow(context.Background()))
}
