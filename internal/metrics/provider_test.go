package metrics_test

import (
	"testing"

	"github.com/gxo-labs/crossws/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_ReturnsExistingCollector(t *testing.T) {
	provider := metrics.NewPrometheusRegistryProvider()
	opts := prometheus.CounterOpts{Name: "crossws_test_total", Help: "test"}

	first, err := metrics.Register(provider.Registry(), prometheus.NewCounter(opts))
	require.NoError(t, err)
	second, err := metrics.Register(provider.Registry(), prometheus.NewCounter(opts))
	require.NoError(t, err)

	first.Inc()
	assert.Same(t, first, second)
}

func TestRegistryProviders_AreIndependent(t *testing.T) {
	a := metrics.NewPrometheusRegistryProvider()
	b := metrics.NewPrometheusRegistryProvider()
	assert.NotSame(t, a.Registry(), b.Registry())
}
