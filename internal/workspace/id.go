// Package workspace maps workspace identifiers to trace destinations.
package workspace

// Kind classifies a workspace identifier.
type Kind int

const (
	// KindOther is any identifier that names no known workspace.
	KindOther Kind = iota
	// KindWorkspaceA is the production workspace.
	KindWorkspaceA
	// KindWorkspaceB is the development workspace.
	KindWorkspaceB
)

// Known identifiers. Matching is exact and case-sensitive.
const (
	WorkspaceA = "workspace_a"
	WorkspaceB = "workspace_b"
)

// String returns a short name for k.
func (k Kind) String() string {
	switch k {
	case KindWorkspaceA:
		return WorkspaceA
	case KindWorkspaceB:
		return WorkspaceB
	default:
		return "other"
	}
}

// ID is a parsed workspace identifier: its kind plus the raw string it was
// parsed from.
type ID struct {
	Kind Kind
	Raw  string
}

// Parse classifies raw. It never fails: anything that is not exactly a
// known identifier is KindOther.
func Parse(raw string) ID {
	switch raw {
	case WorkspaceA:
		return ID{Kind: KindWorkspaceA, Raw: raw}
	case WorkspaceB:
		return ID{Kind: KindWorkspaceB, Raw: raw}
	default:
		return ID{Kind: KindOther, Raw: raw}
	}
}

// String returns the raw identifier.
func (id ID) String() string { return id.Raw }

// Known reports whether id names a known workspace.
func (id ID) Known() bool { return id.Kind != KindOther }
