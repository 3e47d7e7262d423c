package config

import (
	"fmt"

	crossws "github.com/gxo-labs/crossws/pkg/crossws/v1"
)

// DefaultWorkspaceID is used when a runtime configuration names no workspace.
const DefaultWorkspaceID = "workspace_a"

// ResolveWorkspaceID extracts the workspace identifier from rc.
//
// A nil config, a nil configurable map, a missing key and a nil value all
// count as absent and yield DefaultWorkspaceID. Any present string is
// returned unchanged, the empty string included. Other value types are
// rendered with fmt.Sprint; they never name a known workspace.
func ResolveWorkspaceID(rc *crossws.RunnableConfig) string {
	if rc == nil || rc.Configurable == nil {
		return DefaultWorkspaceID
	}
	v, ok := rc.Configurable[crossws.ConfigKeyWorkspaceID]
	if !ok || v == nil {
		return DefaultWorkspaceID
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
