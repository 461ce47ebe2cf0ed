package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
)

const serverName = "snipkit"

type configMethod int

const (
	// methodCLI registers through the agent's own "mcp add" command.
	methodCLI configMethod = iota
	// methodFile merges an entry into the agent's JSON config.
	methodFile
)

// agent describes how to detect and configure one MCP client.
type agent struct {
	id          string
	displayName string
	method      configMethod
	binary      string
	// dirMarkers are project directories whose presence means the agent is
	// used here.
	dirMarkers []string
	configPath func() string
	// serversKey is "servers" for VS Code and "mcpServers" elsewhere.
	serversKey  string
	needsScope  bool
	extraFields map[string]string
}

type detectedAgent struct {
	agent
	configured bool
	// configFile is resolved for file agents.
	configFile string
}

type setupOptions struct {
	auto bool
	// serveArgs follow the binary name in the registered command.
	serveArgs []string
}

// Replaceable in tests.
var (
	lookPathFunc = exec.LookPath
	statFunc     = os.Stat
	runCommand   = func(name string, args ...string) error {
		cmd := exec.Command(name, args...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		return cmd.Run()
	}
)

var agents = []agent{
	{
		id: "claude_code", displayName: "Claude Code",
		method: methodCLI, binary: "claude", needsScope: true,
	},
	{
		id: "openai_codex", displayName: "OpenAI Codex",
		method: methodCLI, binary: "codex", needsScope: true,
	},
	{
		id: "vscode_copilot", displayName: "VS Code Copilot",
		method: methodFile, dirMarkers: []string{".vscode"},
		configPath:  func() string { return filepath.Join(".vscode", "mcp.json") },
		serversKey:  "servers",
		extraFields: map[string]string{"type": "stdio"},
	},
	{
		id: "cursor", displayName: "Cursor",
		method: methodFile, dirMarkers: []string{".cursor"},
		configPath: func() string { return filepath.Join(".cursor", "mcp.json") },
		serversKey: "mcpServers",
	},
	{
		id: "claude_desktop", displayName: "Claude Desktop",
		method:     methodFile,
		configPath: claudeDesktopConfigPath,
		serversKey: "mcpServers",
	},
}

func claudeDesktopConfigPath() string {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Claude", "claude_desktop_config.json")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "Claude", "claude_desktop_config.json")
	default:
		return filepath.Join(home, ".config", "Claude", "claude_desktop_config.json")
	}
}

func setupCmd(a *app) *cobra.Command {
	var opts setupOptions
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Register the snipkit MCP server with installed agents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.serveArgs = serveArgs(a.configPath)
			executeSetup(cmd.InOrStdin(), cmd.OutOrStdout(), opts)
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.auto, "auto", false, "configure every detected agent without prompting")
	return cmd
}

// serveArgs pins the config file the server starts with, so agents that
// launch it from another directory still find it.
func serveArgs(configPath string) []string {
	args := []string{"serve"}
	if configPath == "" {
		if _, err := statFunc(defaultConfigPath); err != nil {
			return args
		}
		configPath = defaultConfigPath
	}
	if abs, err := filepath.Abs(configPath); err == nil {
		configPath = abs
	}
	return append(args, "--config", configPath)
}

func detectAgents() []detectedAgent {
	var detected []detectedAgent
	for _, def := range agents {
		switch def.method {
		case methodCLI:
			if _, err := lookPathFunc(def.binary); err == nil {
				detected = append(detected, detectedAgent{agent: def, configured: hasServer(".mcp.json", "mcpServers")})
			}

		case methodFile:
			path, found := locateConfig(def)
			if !found {
				continue
			}
			d := detectedAgent{agent: def, configFile: path}
			if path != "" {
				d.configured = hasServer(path, def.serversKey)
			}
			detected = append(detected, d)
		}
	}
	return detected
}

// locateConfig finds a file agent by its project markers, or by the parent
// of its config file when it has none.
func locateConfig(def agent) (string, bool) {
	for _, marker := range def.dirMarkers {
		if _, err := statFunc(marker); err == nil {
			if def.configPath == nil {
				return "", true
			}
			return def.configPath(), true
		}
	}
	if len(def.dirMarkers) == 0 && def.configPath != nil {
		path := def.configPath()
		if _, err := statFunc(filepath.Dir(path)); err == nil {
			return path, true
		}
	}
	return "", false
}

// hasServer reports whether the JSON file at path already lists snipkit.
func hasServer(path, serversKey string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	var config map[string]any
	if err := json.Unmarshal(data, &config); err != nil {
		return false
	}
	servers, ok := config[serversKey].(map[string]any)
	if !ok {
		return false
	}
	_, exists := servers[serverName]
	return exists
}

func serverEntry(args []string, extra map[string]string) map[string]any {
	anyArgs := make([]any, len(args))
	for i, a := range args {
		anyArgs[i] = a
	}
	entry := map[string]any{
		"command": serverName,
		"args":    anyArgs,
	}
	for k, v := range extra {
		entry[k] = v
	}
	return entry
}

// mergeServerEntry adds a snipkit entry under serversKey and returns the
// new file contents. It returns nil, nil when the entry already exists.
func mergeServerEntry(existing []byte, serversKey string, args []string, extra map[string]string) ([]byte, error) {
	config := make(map[string]any)
	if len(existing) > 0 {
		if err := json.Unmarshal(existing, &config); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
	}
	servers, ok := config[serversKey].(map[string]any)
	if !ok {
		servers = make(map[string]any)
	}
	if _, exists := servers[serverName]; exists {
		return nil, nil
	}
	servers[serverName] = serverEntry(args, extra)
	config[serversKey] = servers

	out, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

func configureCLIAgent(def agent, scope string, serveArgs []string) error {
	args := []string{"mcp", "add"}
	if scope != "" {
		args = append(args, "--scope", scope)
	}
	args = append(args, serverName, "--", serverName)
	args = append(args, serveArgs...)
	return runCommand(def.binary, args...)
}

func configureFileAgent(def agent, path string, serveArgs []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read %s: %w", path, err)
	}
	merged, err := mergeServerEntry(existing, def.serversKey, serveArgs, def.extraFields)
	if err != nil || merged == nil {
		return err
	}
	return os.WriteFile(path, merged, 0o644)
}

// promptYesNo reads Y/n; empty input and EOF mean yes.
func promptYesNo(sc *bufio.Scanner, w io.Writer, question string) bool {
	fmt.Fprintf(w, "%s ", question)
	if !sc.Scan() {
		return true
	}
	answer := strings.TrimSpace(strings.ToLower(sc.Text()))
	return answer == "" || answer == "y" || answer == "yes"
}

// promptScope returns "project", "user", or "" to skip.
func promptScope(sc *bufio.Scanner, w io.Writer, agentName string) string {
	fmt.Fprintf(w, "\n%s: add the snipkit MCP server?\n", agentName)
	fmt.Fprintln(w, "  [1] Project scope (shared with team)")
	fmt.Fprintln(w, "  [2] User scope (personal, global)")
	fmt.Fprintln(w, "  [3] Skip")
	fmt.Fprintf(w, "  > ")
	if !sc.Scan() {
		return "project"
	}
	switch strings.TrimSpace(sc.Text()) {
	case "1", "":
		return "project"
	case "2":
		return "user"
	default:
		return ""
	}
}

func executeSetup(r io.Reader, w io.Writer, opts setupOptions) {
	if len(opts.serveArgs) == 0 {
		opts.serveArgs = []string{"serve"}
	}
	detected := detectAgents()
	if len(detected) == 0 {
		fmt.Fprintln(w, "No supported AI agents detected.")
		return
	}

	fmt.Fprintln(w, "Detected AI agents:")
	for _, d := range detected {
		if d.configured {
			fmt.Fprintf(w, "  * %s (already configured)\n", d.displayName)
		} else {
			fmt.Fprintf(w, "  * %s\n", d.displayName)
		}
	}
	fmt.Fprintln(w)

	// One scanner for the whole session so buffered answers are not lost
	// between prompts.
	sc := bufio.NewScanner(r)
	if !opts.auto && !promptYesNo(sc, w, "Configure agents? [Y/n]") {
		return
	}
	for _, d := range detected {
		if d.configured {
			fmt.Fprintf(w, "\n%s: already configured, skipping\n", d.displayName)
			continue
		}
		configureOne(sc, w, d, opts)
	}
}

func configureOne(sc *bufio.Scanner, w io.Writer, d detectedAgent, opts setupOptions) {
	switch d.method {
	case methodCLI:
		scope := "project"
		if !opts.auto && d.needsScope {
			if scope = promptScope(sc, w, d.displayName); scope == "" {
				fmt.Fprintln(w, "  skipped")
				return
			}
		}
		if err := configureCLIAgent(d.agent, scope, opts.serveArgs); err != nil {
			fmt.Fprintf(w, "  ! %s: failed: %v\n", d.displayName, err)
			return
		}
		fmt.Fprintf(w, "  + %s configured (scope: %s)\n", d.displayName, scope)

	case methodFile:
		if !opts.auto && !promptYesNo(sc, w, fmt.Sprintf("\n%s: add to %s? [Y/n]", d.displayName, d.configFile)) {
			fmt.Fprintln(w, "  skipped")
			return
		}
		if err := configureFileAgent(d.agent, d.configFile, opts.serveArgs); err != nil {
			fmt.Fprintf(w, "  ! %s: failed: %v\n", d.displayName, err)
			return
		}
		fmt.Fprintf(w, "  + %s configured (%s)\n", d.displayName, d.configFile)
	}
}
