// Package nlu turns a transcribed utterance into a routing decision:
// which agent, which command, and what message is left to forward.
package nlu

import (
	"strings"

	"voxgate/internal/config"
)

// DefaultWindow is how many leading words are scanned for keywords.
const DefaultWindow = 5

// Result is the outcome of scanning one utterance.
//
// AgentName nil means "default agent" when HasAgentKeyword is true; when
// HasAgentKeyword is false no routing was requested at all. The two states
// are distinct and must not collapse.
type Result struct {
	HasAgentKeyword bool
	AgentName       *string
	Command         string // canonical name, "" when none matched
	Message         string
}

// Extract scans the first windowSize words of text for the "agent" trigger,
// an agent name, and a command. Agents match as substrings of the joined
// window (word order inside the window does not matter); commands match as
// whole words only. Ties resolve in configuration declaration order.
func Extract(text string, cfg *config.Config, windowSize int) Result {
	if windowSize <= 0 {
		windowSize = DefaultWindow
	}

	words := strings.Fields(strings.ToLower(text))
	window := words
	if len(window) > windowSize {
		window = window[:windowSize]
	}
	windowText := strings.Join(window, " ")

	res := Result{Message: text}

	if !containsWord(window, "agent") {
		// No trigger word: the whole original text passes through untouched.
		return res
	}
	res.HasAgentKeyword = true

	for _, ag := range cfg.Agents {
		for _, variant := range []string{ag.Name, strings.ReplaceAll(ag.Name, "-", " ")} {
			if strings.Contains(windowText, variant) {
				name := ag.Name
				res.AgentName = &name
				break
			}
		}
		if res.AgentName != nil {
			break
		}
	}

	for _, cmd := range cfg.Commands {
		if !commandAllowed(&cmd, res.AgentName) {
			continue
		}
		if matchesCommandWord(window, &cmd) {
			res.Command = cmd.Name // canonical, even when an alias hit
			break
		}
	}

	// The residual message starts after the last keyword-bearing word in
	// the window. When nothing beyond step one matched as a keyword word,
	// last stays -1 and the full original text is kept.
	last := -1
	for i, w := range window {
		if isKeywordWord(w, cfg) {
			last = i
		}
	}
	if last >= 0 {
		res.Message = strings.Join(words[last+1:], " ")
	}

	return res
}

func commandAllowed(cmd *config.Command, agentName *string) bool {
	if len(cmd.Agents) == 0 {
		return true
	}
	if agentName == nil {
		return false
	}
	return containsWord(cmd.Agents, *agentName)
}

func matchesCommandWord(window []string, cmd *config.Command) bool {
	if containsWord(window, cmd.Name) {
		return true
	}
	for _, alias := range cmd.Aliases {
		if containsWord(window, alias) {
			return true
		}
	}
	return false
}

// isKeywordWord reports whether a window word is routing vocabulary: the
// trigger itself, any command name or alias, or any fragment of an agent
// name (hyphen-split, or the whole hyphenated form).
func isKeywordWord(w string, cfg *config.Config) bool {
	if w == "agent" {
		return true
	}
	for _, cmd := range cfg.Commands {
		if w == cmd.Name || containsWord(cmd.Aliases, w) {
			return true
		}
	}
	for _, ag := range cfg.Agents {
		if w == ag.Name {
			return true
		}
		if containsWord(strings.Fields(strings.ReplaceAll(ag.Name, "-", " ")), w) {
			return true
		}
	}
	return false
}

func containsWord(words []string, target string) bool {
	for _, w := range words {
		if w == target {
			return true
		}
	}
	return false
}
