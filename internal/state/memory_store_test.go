package state_test

import (
	"testing"

	"github.com/gxo-labs/crossws/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStateStore_MergeKeepsUntouchedKeys(t *testing.T) {
	store := state.NewMemoryStateStore()
	store.Load(map[string]interface{}{"a": 1, "b": "two"})

	store.Merge(map[string]interface{}{"b": "three", "response": "hi"})

	assert.Equal(t, map[string]interface{}{"a": 1, "b": "three", "response": "hi"}, store.GetAll())
}

func TestMemoryStateStore_ReadsAreCopies(t *testing.T) {
	store := state.NewMemoryStateStore()
	store.Merge(map[string]interface{}{"meta": map[string]interface{}{"k": "v"}})

	got, found := store.Get("meta")
	require.True(t, found)
	got.(map[string]interface{})["k"] = "mutated"

	all := store.GetAll()
	all["meta"].(map[string]interface{})["k"] = "mutated again"

	again, _ := store.Get("meta")
	assert.Equal(t, "v", again.(map[string]interface{})["k"])
}

func TestMemoryStateStore_MergeIsolatesCallerUpdate(t *testing.T) {
	update := map[string]interface{}{"list": []interface{}{"a"}}
	store := state.NewMemoryStateStore()
	store.Merge(update)

	update["list"].([]interface{})[0] = "b"

	got, _ := store.Get("list")
	assert.Equal(t, []interface{}{"a"}, got)
}

func TestMemoryStateStore_LoadIsolatesCallerMap(t *testing.T) {
	input := map[string]interface{}{"x": []interface{}{1}}
	store := state.NewMemoryStateStore()
	store.Load(input)

	input["x"].([]interface{})[0] = 2
	input["y"] = "late"

	got, _ := store.Get("x")
	assert.Equal(t, []interface{}{1}, got)
	_, found := store.Get("y")
	assert.False(t, found)
}

func TestMemoryStateStore_LoadNilThenMerge(t *testing.T) {
	store := state.NewMemoryStateStore()
	store.Load(nil)
	assert.NotPanics(t, func() { store.Merge(map[string]interface{}{"response": "hi"}) })
	assert.Equal(t, map[string]interface{}{"response": "hi"}, store.GetAll())
}
