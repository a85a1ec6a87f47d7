package nlu

import "voxgate/internal/config"

// ResolveCommand returns the command definition only when it is available
// to the given agent: universal commands (empty allow-list) always resolve,
// otherwise the agent must be on the command's allow-list. A nil return is
// a routing outcome ("not available here"), not an error.
func ResolveCommand(name string, agentName *string, cfg *config.Config) *config.Command {
	cmd := cfg.CommandByName(name)
	if cmd == nil {
		return nil
	}
	if commandAllowed(cmd, agentName) {
		return cmd
	}
	return nil
}
