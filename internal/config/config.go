// Package config loads the agent and command definitions for the gateway.
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Command is a voice command definition. An empty Agents list means the
// command is universal and available to every agent.
type Command struct {
	Name    string
	Agents  []string
	Silent  bool
	Aliases []string
}

// Agent is a named context for the LLM collaborator: a working directory
// plus a synthesis voice. Triggers are derived, never configured.
type Agent struct {
	Name     string
	Path     string
	Voice    string
	Triggers []string
}

// Config is the full gateway configuration. Commands and Agents keep their
// declaration order so first-match routing is reproducible.
type Config struct {
	Keywords []string
	Commands []Command
	Agents   []Agent

	commandIndex map[string]*Command
	agentIndex   map[string]*Agent
}

type rawCommand struct {
	Agents  []string `yaml:"agents"`
	Silent  bool     `yaml:"silent"`
	Aliases []string `yaml:"aliases"`
}

type rawAgent struct {
	Path  string `yaml:"path"`
	Voice string `yaml:"voice"`
}

type rawConfig struct {
	Keywords []string  `yaml:"keywords"`
	Commands yaml.Node `yaml:"commands"`
	Agents   yaml.Node `yaml:"agents"`
}

// Load reads a YAML config file. A missing file is a valid, empty
// configuration: the gateway must run with zero agents configured.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config bytes, preserving mapping declaration order.
func Parse(data []byte) (*Config, error) {
	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg := New()
	cfg.Keywords = raw.Keywords

	if err := eachMapping(&raw.Commands, func(name string, node *yaml.Node) error {
		var rc rawCommand
		if err := node.Decode(&rc); err != nil {
			return fmt.Errorf("command %q: %w", name, err)
		}
		cfg.addCommand(Command{
			Name:    name,
			Agents:  rc.Agents,
			Silent:  rc.Silent,
			Aliases: rc.Aliases,
		})
		return nil
	}); err != nil {
		return nil, err
	}

	if err := eachMapping(&raw.Agents, func(name string, node *yaml.Node) error {
		var ra rawAgent
		if err := node.Decode(&ra); err != nil {
			return fmt.Errorf("agent %q: %w", name, err)
		}
		cfg.addAgent(Agent{
			Name:     name,
			Path:     expandHome(ra.Path),
			Voice:    ra.Voice,
			Triggers: deriveTriggers(name),
		})
		return nil
	}); err != nil {
		return nil, err
	}

	return cfg, nil
}

// New returns an empty configuration.
func New() *Config {
	return &Config{
		commandIndex: make(map[string]*Command),
		agentIndex:   make(map[string]*Agent),
	}
}

func (c *Config) addCommand(cmd Command) {
	c.Commands = append(c.Commands, cmd)
	c.commandIndex[cmd.Name] = &c.Commands[len(c.Commands)-1]
}

func (c *Config) addAgent(ag Agent) {
	c.Agents = append(c.Agents, ag)
	c.agentIndex[ag.Name] = &c.Agents[len(c.Agents)-1]
}

// CommandByName looks up a command by its canonical name.
func (c *Config) CommandByName(name string) *Command {
	return c.commandIndex[name]
}

// AgentByName looks up an agent by name.
func (c *Config) AgentByName(name string) *Agent {
	return c.agentIndex[name]
}

// Hotwords builds a transcription bias string: the deduplicated, sorted
// union of keywords, command names and aliases, and agent name fragments.
func (c *Config) Hotwords() string {
	seen := make(map[string]struct{})
	for _, kw := range c.Keywords {
		for _, w := range strings.Fields(strings.ToLower(kw)) {
			seen[w] = struct{}{}
		}
	}
	for _, cmd := range c.Commands {
		seen[strings.ToLower(cmd.Name)] = struct{}{}
		for _, a := range cmd.Aliases {
			seen[strings.ToLower(a)] = struct{}{}
		}
	}
	for _, ag := range c.Agents {
		for _, part := range strings.Fields(strings.ReplaceAll(ag.Name, "-", " ")) {
			seen[strings.ToLower(part)] = struct{}{}
		}
	}

	words := make([]string, 0, len(seen))
	for w := range seen {
		words = append(words, w)
	}
	sort.Strings(words)
	return strings.Join(words, " ")
}

// deriveTriggers generates "{name} agent" plus, for hyphenated names, the
// spoken space-separated variant ("video-games" -> "video games agent").
func deriveTriggers(name string) []string {
	triggers := []string{name + " agent"}
	if strings.Contains(name, "-") {
		triggers = append(triggers, strings.ReplaceAll(name, "-", " ")+" agent")
	}
	return triggers
}

func eachMapping(node *yaml.Node, fn func(name string, value *yaml.Node) error) error {
	if node.Kind == 0 || node.Kind == yaml.ScalarNode && node.Value == "" {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("expected mapping, got yaml kind %d", node.Kind)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if err := fn(node.Content[i].Value, node.Content[i+1]); err != nil {
			return err
		}
	}
	return nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home + strings.TrimPrefix(path, "~")
	}
	return path
}
