// Package command executes voice commands through the Claude CLI and
// implements local undo for the commands that support it.
package command

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Runner loads command prompts and runs them through the Claude CLI.
type Runner struct {
	// GlobalPromptDir is the fallback voice-commands directory used when
	// an agent has no prompt of its own.
	GlobalPromptDir string
	// Timeout bounds a single command execution.
	Timeout time.Duration
	// Binary is the CLI to invoke, "claude" unless overridden in tests.
	Binary string
}

func NewRunner(globalPromptDir string) *Runner {
	return &Runner{
		GlobalPromptDir: globalPromptDir,
		Timeout:         60 * time.Second,
		Binary:          "claude",
	}
}

// LoadPrompt finds the prompt text for a command. The agent's own
// voice-commands/{name}.md wins over the global directory.
func (r *Runner) LoadPrompt(name, agentPath string) (string, bool) {
	candidates := []string{
		filepath.Join(agentPath, "voice-commands", name+".md"),
		filepath.Join(r.GlobalPromptDir, name+".md"),
	}
	for _, p := range candidates {
		data, err := os.ReadFile(p)
		if err == nil {
			slog.Info("loaded command prompt", "path", p)
			return string(data), true
		}
	}
	slog.Warn("no command prompt found", "command", name)
	return "", false
}

// Execute runs a command by feeding the user's message to the Claude CLI
// with the command prompt appended to the system prompt, from inside the
// agent's directory.
func (r *Runner) Execute(ctx context.Context, name, message, agentPath string) error {
	prompt, ok := r.LoadPrompt(name, agentPath)
	if !ok {
		return fmt.Errorf("no prompt for command %q", name)
	}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.Binary, "-p",
		"--append-system-prompt", prompt,
		"--dangerously-skip-permissions",
	)
	cmd.Dir = agentPath
	cmd.Stdin = strings.NewReader(message)

	out, err := cmd.CombinedOutput()
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("command %q timed out", name)
	}
	if err != nil {
		return fmt.Errorf("command %q failed: %w: %s", name, err, strings.TrimSpace(string(out)))
	}

	slog.Info("command executed", "command", name)
	return nil
}
