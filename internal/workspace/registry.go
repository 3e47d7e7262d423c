package workspace

import (
	"context"
	"errors"
	"fmt"

	"github.com/gxo-labs/crossws/internal/backend"
	crosswserrors "github.com/gxo-labs/crossws/pkg/crossws/v1/errors"
	crosswstracing "github.com/gxo-labs/crossws/pkg/crossws/v1/tracing"
)

// Project names traces are filed under.
const (
	ProjectWorkspaceA = "production-traces"
	ProjectWorkspaceB = "development-traces"
	ProjectDefault    = "default-traces"
)

// Binding pairs a workspace with the client and project its traces go to.
// Destination is the trace destination for that pair, created once.
type Binding struct {
	Workspace   ID
	Client      *backend.Client
	ProjectName string
	Destination crosswstracing.TracerProvider
}

// Registry holds the three bindings. It is built once at startup, never
// modified afterwards and therefore shared between goroutines without
// locking.
type Registry struct {
	a        Binding
	b        Binding
	fallback Binding
}

// NewRegistry creates the destinations for workspace A (production-traces),
// workspace B (development-traces) and the default pair (client A,
// default-traces).
func NewRegistry(ctx context.Context, clientA, clientB *backend.Client) (*Registry, error) {
	if clientA == nil || clientB == nil {
		return nil, crosswserrors.NewConfigError("workspace registry requires both backend clients", nil)
	}
	r := &Registry{}
	specs := []struct {
		dst     *Binding
		id      ID
		client  *backend.Client
		project string
	}{
		{dst: &r.a, id: Parse(WorkspaceA), client: clientA, project: ProjectWorkspaceA},
		{dst: &r.b, id: Parse(WorkspaceB), client: clientB, project: ProjectWorkspaceB},
		{dst: &r.fallback, id: ID{Kind: KindOther}, client: clientA, project: ProjectDefault},
	}
	for _, s := range specs {
		dest, err := s.client.Destination(ctx, s.project)
		if err != nil {
			_ = r.Shutdown(ctx)
			return nil, fmt.Errorf("failed to create destination for project '%s': %w", s.project, err)
		}
		*s.dst = Binding{Workspace: s.id, Client: s.client, ProjectName: s.project, Destination: dest}
	}
	return r, nil
}

// Resolve returns the binding for id. It is total: unknown identifiers get
// the default binding, whose Workspace carries the raw identifier.
func (r *Registry) Resolve(id ID) Binding {
	switch id.Kind {
	case KindWorkspaceA:
		return r.a
	case KindWorkspaceB:
		return r.b
	}
	// KindOther
	b := r.fallback
	b.Workspace = id
	return b
}

// Lookup is Resolve(Parse(raw)).
func (r *Registry) Lookup(raw string) Binding {
	return r.Resolve(Parse(raw))
}

// Bindings returns the A, B and default bindings in that order.
func (r *Registry) Bindings() []Binding {
	return []Binding{r.a, r.b, r.fallback}
}

// Shutdown flushes and closes every destination, returning all errors.
func (r *Registry) Shutdown(ctx context.Context) error {
	var errs []error
	for _, b := range r.Bindings() {
		if b.Destination == nil {
			continue
		}
		if err := b.Destination.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("project '%s': %w", b.ProjectName, err))
		}
	}
	return errors.Join(errs...)
}
