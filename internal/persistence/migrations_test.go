package persistence

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opsdesk/sla-service/migrations"
)

func TestPendingMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_history.sql":   {Data: []byte("SELECT 2")},
		"0001_instances.sql": {Data: []byte("SELECT 1")},
		"0003_extra.sql":     {Data: []byte("SELECT 3")},
		"README.md":          {Data: []byte("notes")},
		"old/0000_x.sql":     {Data: []byte("SELECT 0")},
	}

	pending, err := pendingMigrations(fsys, map[string]bool{"0002_history.sql": true})
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_instances.sql", "0003_extra.sql"}, pending)
}

func TestEmbeddedMigrations(t *testing.T) {
	pending, err := pendingMigrations(migrations.FS, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_sla_instances.sql", "0002_sla_history.sql", "0003_sla_pause_chargeable.sql"}, pending)
}

func TestRunMigrationsWithoutPool(t *testing.T) {
	assert.NoError(t, RunMigrations(context.Background(), nil, migrations.FS, zap.NewNop()))
}
