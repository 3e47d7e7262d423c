package state

import (
	"maps"
	"sync"

	"github.com/gxo-labs/crossws/internal/util"
	crossws "github.com/gxo-labs/crossws/pkg/crossws/v1/state"
)

// MemoryStateStore keeps the state of one graph invocation in a map guarded
// by a sync.RWMutex. Reads return deep copies so a step can never mutate the
// state it was handed; the only way to change state is through Merge, which
// the engine calls with the step's returned update.
type MemoryStateStore struct {
	data map[string]interface{}
	mu   sync.RWMutex
}

// NewMemoryStateStore creates an empty store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{
		data: make(map[string]interface{}),
	}
}

// Get returns a deep copy of the value stored under key.
func (s *MemoryStateStore) Get(key string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, exists := s.data[key]
	if !exists {
		return nil, false
	}
	return util.DeepCopy(val), true
}

// GetAll returns a deep copy of the whole state. Keys are not interpreted;
// "a.b" stays a single top-level key.
func (s *MemoryStateStore) GetAll() map[string]interface{} {
	s.mu.RLock()
	snapshot := maps.Clone(s.data)
	s.mu.RUnlock()
	return util.CopyMap(snapshot)
}

// Merge applies a partial update: every key of update overwrites the key of
// the same name, other keys are kept.
func (s *MemoryStateStore) Merge(update map[string]interface{}) {
	if len(update) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range update {
		s.data[k] = util.DeepCopy(v)
	}
}

// Load replaces the state with a deep copy of data.
func (s *MemoryStateStore) Load(data map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = util.CopyMap(data)
}

var _ crossws.Store = (*MemoryStateStore)(nil)
