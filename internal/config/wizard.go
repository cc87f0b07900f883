package config

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/manifoldco/promptui"
)

// rendererCandidates are the places mermaid-cli is usually installed.
var rendererCandidates = []string{
	"mmdc",
	filepath.Join("node_modules", ".bin", "mmdc"),
}

// detectRenderer looks for mermaid-cli on PATH and in a local node_modules.
func detectRenderer() string {
	for _, c := range rendererCandidates {
		if strings.ContainsRune(c, filepath.Separator) {
			if _, err := os.Stat(c); err == nil {
				return c
			}
			continue
		}
		if path, err := exec.LookPath(c); err == nil {
			return path
		}
	}
	return ""
}

var positions = []string{"top-right", "top-left", "top", "bottom-right", "bottom-left", "bottom"}

// RunWizard runs an interactive configuration wizard, saves the result to
// path and returns it.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to wisdomizer! Let's configure your client.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Chat server.
	serverPrompt := promptui.Prompt{
		Label:   "Chat server URL",
		Default: cfg.ServerURL,
		Validate: func(s string) error {
			probe := *cfg
			probe.ServerURL = strings.TrimSpace(s)
			return probe.Validate()
		},
	}
	serverURL, err := serverPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("server url: %w", err)
	}
	cfg.ServerURL = strings.TrimRight(strings.TrimSpace(serverURL), "/")

	// 2. Notification position.
	positionPrompt := promptui.Select{
		Label: "Where should notifications appear",
		Items: positions,
	}
	_, position, err := positionPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("notification position: %w", err)
	}
	cfg.Notifications.Position = position

	// 3. Diagram renderer.
	detected := detectRenderer()
	if detected != "" {
		fmt.Printf("Found mermaid-cli at %s\n\n", detected)
	}
	commandPrompt := promptui.Prompt{
		Label:   "mermaid-cli command (blank disables diagrams)",
		Default: detected,
	}
	command, err := commandPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("diagram command: %w", err)
	}
	cfg.Diagrams.Command = strings.TrimSpace(command)

	// 4. Terminal Markdown.
	markdownPrompt := promptui.Select{
		Label: "Render Markdown in the terminal chat",
		Items: []string{"yes (formatted replies)", "no (raw text as it streams)"},
	}
	idx, _, err := markdownPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("terminal markdown: %w", err)
	}
	cfg.Markdown.Terminal = idx == 0

	// 5. Render patterns.
	includePrompt := promptui.Prompt{
		Label:   "Markdown files for the render command (comma-separated globs)",
		Default: strings.Join(cfg.Render.Include, ","),
	}
	includeStr, err := includePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("include patterns: %w", err)
	}
	if include := splitAndTrim(includeStr); len(include) > 0 {
		cfg.Render.Include = include
	}

	if cfg.Diagrams.Command == "" {
		fmt.Println("\nNote: diagrams will show their source until mermaid-cli is configured (npm install -g @mermaid-js/mermaid-cli).")
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

// splitAndTrim splits a comma-separated string and trims whitespace.
func splitAndTrim(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if token := strings.TrimSpace(part); token != "" {
			result = append(result, token)
		}
	}
	return result
}
