// Package session persists the sticky agent selection and the last executed
// command across otherwise stateless voice requests.
package session

// LastCommand is the snapshot kept for undo/repeat. Agent is nil when the
// command ran against the default agent.
type LastCommand struct {
	Agent     *string `json:"agent"`
	Command   string  `json:"command"`
	Message   string  `json:"message"`
	AgentPath string  `json:"agent_path"`
}

// Store is the session state interface. Implementations must treat missing
// or corrupt state as empty, and every mutation must preserve fields it
// does not own (read-modify-write, never blind overwrite).
type Store interface {
	// CurrentAgent returns the sticky agent, nil for default/none.
	CurrentAgent() *string
	// SetCurrentAgent persists a new sticky agent; nil selects the default.
	SetCurrentAgent(name *string) error
	// SaveLastCommand records a snapshot for undo/repeat.
	SaveLastCommand(lc LastCommand) error
	// LastCommand returns the recorded snapshot, nil when absent.
	LastCommand() *LastCommand
	// ClearLastCommand removes the snapshot only.
	ClearLastCommand() error
}
