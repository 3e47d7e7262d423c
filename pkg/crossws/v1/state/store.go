package state

// StateReader is the read-only view of graph state handed to steps.
// Implementations must be thread-safe and return values the caller may not
// mutate in place.
type StateReader interface {
	// Get returns the value stored under key and whether it exists.
	Get(key string) (interface{}, bool)

	// GetAll returns a copy of the whole state.
	GetAll() map[string]interface{}
}

// Store backs the state of a single graph invocation. The engine creates one
// per invocation, seeds it with Load and applies every step update with
// Merge, so stores are never shared between invocations.
type Store interface {
	StateReader

	// Load replaces the whole state with a copy of data.
	Load(data map[string]interface{})

	// Merge overwrites the keys present in update and keeps all others.
	Merge(update map[string]interface{})
}
