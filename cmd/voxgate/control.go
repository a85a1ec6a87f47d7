package main

import (
	"fmt"

	log "log/slog"

	"voxgate/internal/config"
	"voxgate/internal/gateway"
	"voxgate/internal/ipc"
	"voxgate/internal/session"
)

// controlHandler serves the local unix-socket commands voxgate-ctl sends.
func controlHandler(server *gateway.Server, store session.Store, cfg *config.Config) ipc.Handler {
	return func(req ipc.Request) ipc.Reply {
		switch req.Cmd {
		case "reload":
			newCfg, err := server.Reload()
			if err != nil {
				return ipc.Reply{Detail: err.Error()}
			}
			cfg = newCfg
			return ipc.Reply{OK: true, Detail: fmt.Sprintf("%d agents, %d commands", len(newCfg.Agents), len(newCfg.Commands))}

		case "switch":
			if req.Arg != "default" && cfg.AgentByName(req.Arg) == nil {
				return ipc.Reply{Detail: "agent '" + req.Arg + "' not found"}
			}
			var target *string
			if req.Arg != "default" {
				target = &req.Arg
			}
			if err := store.SetCurrentAgent(target); err != nil {
				return ipc.Reply{Detail: err.Error()}
			}
			return ipc.Reply{OK: true, Detail: "switched to " + req.Arg}

		case "status":
			agent := "default"
			if current := store.CurrentAgent(); current != nil {
				agent = *current
			}
			return ipc.Reply{OK: true, Detail: "agent: " + agent}

		default:
			log.Warn("Unknown control command", "cmd", req.Cmd)
			return ipc.Reply{Detail: "unknown command " + req.Cmd}
		}
	}
}
