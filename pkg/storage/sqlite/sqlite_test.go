package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAndMigrate(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Migrate(ctx, db))
	// second run is a no-op
	require.NoError(t, Migrate(ctx, db))

	var name string
	require.NoError(t, db.GetContext(ctx, &name, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'users'`))
	assert.Equal(t, "users", name)
}
