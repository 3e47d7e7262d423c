package workspace

// Fixed greeting messages.
const (
	GreetingWorkspaceA = "Hello from Workspace A! Processing with production settings."
	GreetingWorkspaceB = "Hello from Workspace B! Processing with development settings."
	GreetingDefault    = "Hello from the default workspace!"
)

// Greeting returns the message the greeting step produces for id.
func Greeting(id ID) string {
	switch id.Kind {
	case KindWorkspaceA:
		return GreetingWorkspaceA
	case KindWorkspaceB:
		return GreetingWorkspaceB
	}
	return GreetingDefault
}
