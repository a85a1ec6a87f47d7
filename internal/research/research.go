// Package research runs long-form research requests as detached Claude
// subprocesses so the voice round-trip returns immediately.
package research

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Slug builds a filename fragment from the first words of a topic:
// lowercase, kebab-case, at most five words.
func Slug(topic string) string {
	words := strings.Fields(strings.ToLower(topic))
	if len(words) > 5 {
		words = words[:5]
	}
	for i, w := range words {
		words[i] = slugStrip.ReplaceAllString(w, "")
	}
	joined := strings.Trim(strings.Join(words, "-"), "-")
	if joined == "" {
		return "topic"
	}
	return joined
}

const researchPrompt = `Research the following topic thoroughly using web search.
Write a well-organized report in markdown with sources.

Topic: %s`

// Spawn starts a detached research run inside agentPath and returns the
// file the report will land in. The subprocess outlives the daemon
// request; failures after the fork are logged by the shell redirect, not
// surfaced here.
func Spawn(agentPath, topic string) (string, error) {
	dir := filepath.Join(agentPath, "research")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create research dir: %w", err)
	}
	outFile := filepath.Join(dir, fmt.Sprintf("%s-%s.md", time.Now().Format("2006-01-02-1504"), Slug(topic)))

	prompt := fmt.Sprintf(researchPrompt, topic)
	cmd := exec.Command("claude", "-p", prompt, "--dangerously-skip-permissions")
	cmd.Dir = agentPath

	out, err := os.Create(outFile)
	if err != nil {
		return "", fmt.Errorf("create report file: %w", err)
	}
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Start(); err != nil {
		out.Close()
		os.Remove(outFile)
		return "", fmt.Errorf("start research: %w", err)
	}
	// Reap in the background so the child never zombies.
	go func() {
		defer out.Close()
		if err := cmd.Wait(); err != nil {
			slog.Warn("research run failed", "file", outFile, "err", err)
		} else {
			slog.Info("research complete", "file", outFile)
		}
	}()

	return outFile, nil
}
