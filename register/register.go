// Package register writes a servemd entry into an MCP client config file.
package register

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/natefinch/atomic"
	"go.trai.ch/zerr"
)

type mcpServerEntry struct {
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
}

// Run executes the register subcommand.
// serverName is the key written under mcpServers (e.g. "servemd").
// args is os.Args[2:] (everything after "register").
func Run(serverName string, args []string) error {
	if len(args) == 0 {
		printUsage()
		return zerr.New("missing scope")
	}

	scope := args[0]
	if scope != "project" && scope != "user" {
		printUsage()
		return zerr.With(zerr.New("unknown scope, must be project or user"), "scope", scope)
	}

	var directory string
	var serverArgs []string

	if scope == "project" {
		directory, serverArgs = parseProjectArgs(args[1:])
	} else {
		serverArgs = parseUserArgs(args[1:])
	}

	binaryPath, err := detectBinaryPath()
	if err != nil {
		return err
	}

	configPath, err := resolveConfigPath(scope, directory)
	if err != nil {
		return err
	}

	if scope == "project" {
		docsRoot, err := projectDocsRoot(directory)
		if err != nil {
			return err
		}
		serverArgs = withDocsRoot(serverArgs, docsRoot)
	}

	entry := buildEntry(binaryPath, withMCPFlag(serverArgs))

	if err := writeConfig(configPath, serverName, entry); err != nil {
		return err
	}

	fmt.Printf("Registered %q in %s\n", serverName, configPath)
	return nil
}

func printUsage() {
	binaryName := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr, "Usage:\n")
	fmt.Fprintf(os.Stderr, "  %s register project [directory]  # → <directory>/.mcp.json (default: .)\n", binaryName)
	fmt.Fprintf(os.Stderr, "  %s register user                 # → ~/.claude.json\n", binaryName)
	fmt.Fprintf(os.Stderr, "  %s register project . -- -site-name Docs  # forward flags to the server\n", binaryName)
	fmt.Fprintf(os.Stderr, "  %s register user -- -docs-root /srv/docs  # forward flags to the server\n", binaryName)
}

// DeriveServerName extracts a server name from a binary path by stripping .exe and -mcp suffixes.
func DeriveServerName(binaryPath string) string {
	name := filepath.Base(binaryPath)
	name = strings.TrimSuffix(name, ".exe")
	name = strings.TrimSuffix(name, "-mcp")
	return name
}

func parseProjectArgs(args []string) (directory string, serverArgs []string) {
	directory = "."
	for i, arg := range args {
		if arg == "--" {
			return directory, args[i+1:]
		}
		if i == 0 {
			directory = arg
		}
	}
	return directory, nil
}

func parseUserArgs(args []string) []string {
	for i, arg := range args {
		if arg == "--" {
			return args[i+1:]
		}
	}
	return nil
}

// projectDocsRoot prefers <directory>/docs when it exists, otherwise the directory itself.
func projectDocsRoot(directory string) (string, error) {
	absDir, err := filepath.Abs(directory)
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, "resolving directory"), "directory", directory)
	}
	candidate := filepath.Join(absDir, "docs")
	if info, err := os.Stat(candidate); err == nil && info.IsDir() {
		return candidate, nil
	}
	return absDir, nil
}

func hasFlag(args []string, name string) bool {
	return slices.ContainsFunc(args, func(arg string) bool {
		trimmed := strings.TrimLeft(arg, "-")
		if trimmed == arg {
			return false
		}
		return trimmed == name || strings.HasPrefix(trimmed, name+"=")
	})
}

func withDocsRoot(args []string, docsRoot string) []string {
	if hasFlag(args, "docs-root") {
		return args
	}
	return append([]string{"-docs-root", docsRoot}, args...)
}

func withMCPFlag(args []string) []string {
	if hasFlag(args, "mcp") {
		return args
	}
	return append([]string{"-mcp"}, args...)
}

func detectBinaryPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", zerr.Wrap(err, "getting executable path")
	}
	resolved, err := filepath.EvalSymlinks(exe)
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, "resolving symlinks"), "path", exe)
	}
	return resolved, nil
}

func resolveConfigPath(scope string, directory string) (string, error) {
	if scope == "project" {
		absDir, err := filepath.Abs(directory)
		if err != nil {
			return "", zerr.With(zerr.Wrap(err, "resolving directory"), "directory", directory)
		}
		return filepath.Join(absDir, ".mcp.json"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", zerr.Wrap(err, "getting home directory")
	}
	return filepath.Join(homeDir, ".claude.json"), nil
}

func buildEntry(binaryPath string, serverArgs []string) mcpServerEntry {
	if runtime.GOOS == "windows" {
		args := []string{"/C", binaryPath}
		args = append(args, serverArgs...)
		return mcpServerEntry{
			Command: "cmd",
			Args:    args,
		}
	}
	return mcpServerEntry{
		Command: binaryPath,
		Args:    serverArgs,
	}
}

func writeConfig(configPath string, serverName string, entry mcpServerEntry) error {
	config := map[string]any{
		"mcpServers": map[string]any{},
	}

	data, err := os.ReadFile(configPath)
	if err == nil {
		if err := json.Unmarshal(data, &config); err != nil {
			return zerr.With(zerr.Wrap(err, "parsing existing config"), "path", configPath)
		}
	}

	servers, ok := config["mcpServers"]
	if !ok {
		servers = map[string]any{}
		config["mcpServers"] = servers
	}

	serversMap, ok := servers.(map[string]any)
	if !ok {
		return zerr.With(zerr.New("mcpServers is not an object"), "path", configPath)
	}

	serversMap[serverName] = entry

	output, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return zerr.Wrap(err, "marshaling config")
	}
	output = append(output, '\n')

	if err := atomic.WriteFile(configPath, bytes.NewReader(output)); err != nil {
		return zerr.With(zerr.Wrap(err, "writing config"), "path", configPath)
	}
	return nil
}
