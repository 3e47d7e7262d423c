package secrets

import (
	"strings"
	"sync"
)

// RedactedPlaceholder replaces secret values in exported data.
const RedactedPlaceholder = "[REDACTED]"

// SecretTracker remembers credential values that must never leave the
// process inside trace attributes or log lines. The backend client registers
// its API key here; trace listeners consult it before exporting step inputs
// and outputs.
type SecretTracker struct {
	mu              sync.RWMutex
	resolvedSecrets map[string]struct{}
}

// NewSecretTracker creates a new, empty tracker.
func NewSecretTracker() *SecretTracker {
	return &SecretTracker{
		resolvedSecrets: make(map[string]struct{}),
	}
}

// Add marks secretValue as sensitive. Empty strings are ignored.
func (t *SecretTracker) Add(secretValue string) {
	if secretValue == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resolvedSecrets[secretValue] = struct{}{}
}

// IsTracked reports whether value is exactly a tracked secret.
func (t *SecretTracker) IsTracked(value string) bool {
	if value == "" {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, found := t.resolvedSecrets[value]
	return found
}

// Redact replaces every occurrence of a tracked secret in input with
// RedactedPlaceholder. A nil tracker returns input unchanged.
func (t *SecretTracker) Redact(input string) string {
	if t == nil || input == "" {
		return input
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	for secret := range t.resolvedSecrets {
		input = strings.ReplaceAll(input, secret, RedactedPlaceholder)
	}
	return input
}
