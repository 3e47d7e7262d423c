package secrets

import "context"

// Provider defines the interface for retrieving secrets such as the trace
// backend credential.
type Provider interface {
	// GetSecret returns the value stored under key and whether it was found.
	// A non-nil error means the lookup itself failed, not that the key is
	// missing.
	GetSecret(ctx context.Context, key string) (string, bool, error)
}
