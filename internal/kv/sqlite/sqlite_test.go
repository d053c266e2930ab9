package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/kv"
)

func newBackend(t *testing.T) *Backend {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "data", "kv.db"))
	require.NoError(t, err)

	b := New(db)
	require.NoError(t, b.Init(context.Background()))
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestBackendSetGetOverwrite(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)

	_, ok, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.Set(ctx, "k", "v1"))
	require.NoError(t, b.Set(ctx, "k", "v2"))

	v, ok, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v2", v)
}

func TestBackendDelete(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)

	require.NoError(t, b.Set(ctx, "k", "v"))
	require.NoError(t, b.Delete(ctx, "k"))
	require.NoError(t, b.Delete(ctx, "k"))

	_, ok, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBackendDeletePrefixEscapesWildcards(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)

	require.NoError(t, b.Set(ctx, "app_1-tasks", "a"))
	require.NoError(t, b.Set(ctx, "app_1-users", "b"))
	require.NoError(t, b.Set(ctx, "appX1-tasks", "c"))
	require.NoError(t, b.Set(ctx, "APP_1-tasks", "d"))

	require.NoError(t, b.DeletePrefix(ctx, "app_1-"))

	_, ok, _ := b.Get(ctx, "app_1-tasks")
	assert.False(t, ok)
	_, ok, _ = b.Get(ctx, "app_1-users")
	assert.False(t, ok)
	_, ok, _ = b.Get(ctx, "appX1-tasks")
	assert.True(t, ok, "underscore must not match as a wildcard")
	_, ok, _ = b.Get(ctx, "APP_1-tasks")
	assert.True(t, ok, "prefix match is case sensitive")
}

func TestStoreClearKeepsCaseVariantNamespace(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)
	logger, _ := test.NewNullLogger()

	lower := kv.New(b, "app-", logger)
	upper := kv.New(b, "APP-", logger)
	lower.Set(ctx, "tasks", []string{"a"})
	upper.Set(ctx, "tasks", []string{"b"})

	lower.Clear(ctx)

	var got []string
	assert.False(t, lower.Get(ctx, "tasks", &got))
	require.True(t, upper.Get(ctx, "tasks", &got))
	assert.Equal(t, []string{"b"}, got)
}
