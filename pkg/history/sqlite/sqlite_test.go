package sqlite

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/rexliu/m365/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Init(context.Background()))
	return store
}

func TestStoreRecordRecent(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	require.NoError(t, store.Record(ctx, core.CallRecord{
		ID:         "01JH0000000000000000000001",
		Method:     core.ToolListMailMessages,
		Params:     json.RawMessage(`{"top":5}`),
		Outcome:    core.OutcomeOK,
		StartedAt:  1000,
		DurationMS: 840,
	}))
	require.NoError(t, store.Record(ctx, core.CallRecord{
		ID:         "01JH0000000000000000000002",
		Method:     core.ToolVerifyLogin,
		Outcome:    core.OutcomeTimeout,
		Error:      "Request timed out",
		StartedAt:  2000,
		DurationMS: 60000,
	}))

	records, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, core.ToolVerifyLogin, records[0].Method)
	assert.Equal(t, core.OutcomeTimeout, records[0].Outcome)
	assert.Equal(t, "Request timed out", records[0].Error)
	assert.Nil(t, records[0].Params)

	assert.Equal(t, "01JH0000000000000000000001", records[1].ID)
	assert.JSONEq(t, `{"top":5}`, string(records[1].Params))
	assert.Equal(t, int64(840), records[1].DurationMS)
	assert.Empty(t, records[1].Error)
}

func TestStoreRecentLimitAndTies(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	for _, id := range []string{"A", "C", "B"} {
		require.NoError(t, store.Record(ctx, core.CallRecord{ID: id, Method: "m", Outcome: core.OutcomeOK, StartedAt: 5}))
	}

	records, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "C", records[0].ID)
	assert.Equal(t, "B", records[1].ID)

	all, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestStoreRejectsUnknownOutcome(t *testing.T) {
	store := openStore(t)
	err := store.Record(context.Background(), core.CallRecord{Method: "m", Outcome: "weird"})
	assert.Error(t, err)
}

func TestStorePrune(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Record(ctx, core.CallRecord{Method: "m", Outcome: core.OutcomeOK, StartedAt: int64(i)}))
	}

	removed, err := store.Prune(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	records, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(4), records[0].StartedAt)

	_, err = store.Prune(ctx, -1)
	assert.Error(t, err)
}

func TestStoreReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Init(ctx))
	require.NoError(t, store.Record(ctx, core.CallRecord{Method: "m", Outcome: core.OutcomeSpawn}))
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Init(ctx))
	records, err := store.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, path, store.Path())
}
