package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "history.db")
	store, err := NewStore(context.Background(), dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestDefaultDBPathUsesBasePath(t *testing.T) {
	t.Setenv("CHANGEGATE_BASE_PATH", "/tmp/cg-test")

	path, err := DefaultDBPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/cg-test/history.db", path)
}

func TestRecordAndList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	d := &Decision{
		Base:           "main",
		Head:           "feature",
		FilesChanged:   3,
		CodeChanged:    true,
		MatchedPath:    "haystack/core/pipeline/base.py",
		MatchedPattern: "haystack/**/*.py",
		Action:         ActionDispatchedTests,
	}
	require.NoError(t, store.Record(ctx, d))

	// ID and timestamp are filled in on insert.
	assert.NotEmpty(t, d.ID)
	assert.False(t, d.CreatedAt.IsZero())

	decisions, err := store.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, decisions, 1)

	got := decisions[0]
	assert.Equal(t, d.ID, got.ID)
	assert.Equal(t, "main", got.Base)
	assert.Equal(t, 3, got.FilesChanged)
	assert.True(t, got.CodeChanged)
	assert.Equal(t, "haystack/**/*.py", got.MatchedPattern)
	assert.Equal(t, ActionDispatchedTests, got.Action)
}

func TestListNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Record(ctx, &Decision{
			Base:      "main",
			Head:      "feature",
			Action:    ActionEvaluated,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	decisions, err := store.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, decisions, 3)
	assert.True(t, decisions[0].CreatedAt.After(decisions[1].CreatedAt))
	assert.True(t, decisions[1].CreatedAt.After(decisions[2].CreatedAt))
}

func TestListRespectsLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Record(ctx, &Decision{
			Base: "main", Head: "feature", Action: ActionSkippedChecks,
		}))
	}

	decisions, err := store.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, decisions, 2)
}

func TestListDefaultLimit(t *testing.T) {
	store := newTestStore(t)

	decisions, err := store.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, decisions)
}

func TestStoreReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	store, err := NewStore(ctx, dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Record(ctx, &Decision{Base: "main", Head: "f", Action: ActionEvaluated}))
	require.NoError(t, store.Close())

	reopened, err := NewStore(ctx, dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	decisions, err := reopened.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, decisions, 1)
}
