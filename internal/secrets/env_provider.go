package secrets

import (
	"context"
	"os"

	crossws "github.com/gxo-labs/crossws/pkg/crossws/v1/secrets"
)

// EnvProvider reads secrets from the process environment.
type EnvProvider struct{}

// NewEnvProvider creates a new environment variable secrets provider.
func NewEnvProvider() *EnvProvider {
	return &EnvProvider{}
}

// GetSecret returns the value of the environment variable key.
func (p *EnvProvider) GetSecret(_ context.Context, key string) (string, bool, error) {
	value, found := os.LookupEnv(key)
	return value, found, nil
}

// MapProvider serves secrets from a fixed map. It is used where the process
// environment must not leak in, e.g. tests and embedded callers passing an
// explicit credential.
type MapProvider map[string]string

// GetSecret returns m[key].
func (m MapProvider) GetSecret(_ context.Context, key string) (string, bool, error) {
	value, found := m[key]
	return value, found, nil
}

// FirstNonEmpty looks keys up in order and returns the first non-empty value
// together with the key it came from. A key that is set to "" is skipped.
// Lookup errors abort the search.
func FirstNonEmpty(ctx context.Context, provider crossws.Provider, keys ...string) (value string, key string, err error) {
	for _, k := range keys {
		v, found, err := provider.GetSecret(ctx, k)
		if err != nil {
			return "", k, err
		}
		if found && v != "" {
			return v, k, nil
		}
	}
	return "", "", nil
}

var (
	_ crossws.Provider = (*EnvProvider)(nil)
	_ crossws.Provider = MapProvider(nil)
)
