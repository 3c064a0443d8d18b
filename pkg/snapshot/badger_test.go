package snapshot_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/proseed/proseed/pkg/snapshot"
)

type doc struct {
	Name  string  `json:"name"`
	Items []int64 `json:"items"`
}

func TestStore_SaveLoad(t *testing.T) {
	store, err := snapshot.Open(snapshot.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()

	var out doc
	require.ErrorIs(t, store.Load(ctx, "state", &out), snapshot.ErrNotFound)

	require.NoError(t, store.Save(ctx, "state", doc{Name: "p1", Items: []int64{1, 2}}))
	require.NoError(t, store.Load(ctx, "state", &out))
	require.Equal(t, doc{Name: "p1", Items: []int64{1, 2}}, out)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := snapshot.Open(snapshot.DefaultConfig(dir))
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, "state", doc{Name: "kept"}))
	require.NoError(t, store.Close())

	store, err = snapshot.Open(snapshot.DefaultConfig(dir))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	var out doc
	require.NoError(t, store.Load(ctx, "state", &out))
	require.Equal(t, "kept", out.Name)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := snapshot.Open(snapshot.Config{})
	require.Error(t, err)
}
