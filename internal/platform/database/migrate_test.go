package database

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpMigrationsOrdersAndFilters(t *testing.T) {
	fsys := fstest.MapFS{
		"000002_sessions.up.sql":    {Data: []byte("SELECT 2")},
		"000001_users.up.sql":       {Data: []byte("SELECT 1")},
		"000001_users.down.sql":     {Data: []byte("SELECT 0")},
		"embed.go":                  {Data: []byte("package migrations")},
		"000010_later.up.sql":       {Data: []byte("SELECT 10")},
		"nested/000003_skip.up.sql": {Data: []byte("SELECT 3")},
	}

	files, err := upMigrations(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_users.up.sql", "000002_sessions.up.sql", "000010_later.up.sql"}, files)
}

func TestNilPoolIsSafe(t *testing.T) {
	var p *Pool
	assert.Error(t, p.Health(t.Context()))
	assert.NoError(t, p.Close())
	_, err := p.Migrate(t.Context(), fstest.MapFS{})
	assert.Error(t, err)
}
