// Package metrics defines how crossws components reach the Prometheus registry
// their collectors are registered in.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// RegistryProvider hands out the registry shared by the graph engine, the
// workspace router and the HTTP /metrics endpoint.
type RegistryProvider interface {
	Registry() *prometheus.Registry
}
