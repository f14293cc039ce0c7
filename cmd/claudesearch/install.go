package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(installCmd)
	installCmd.AddCommand(installAddCmd)
	installCmd.AddCommand(installRemoveCmd)
	installCmd.AddCommand(installStatusCmd)
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Manage claudesearch's MCP server registration in Claude Code settings",
}

var installAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register claudesearch as an MCP server in Claude Code settings",
	RunE:  runInstallAdd,
}

var installRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove claudesearch's MCP server registration",
	RunE:  runInstallRemove,
}

var installStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check whether claudesearch is registered as an MCP server",
	RunE:  runInstallStatus,
}

const mcpServerName = "claudesearch"

func runInstallAdd(cmd *cobra.Command, args []string) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locating own binary: %w", err)
	}

	settingsPath, err := claudeSettingsPath()
	if err != nil {
		return err
	}

	settings, err := loadSettings(settingsPath)
	if err != nil {
		settings = make(map[string]any)
	}

	servers, _ := settings["mcpServers"].(map[string]any)
	if servers == nil {
		servers = make(map[string]any)
		settings["mcpServers"] = servers
	}

	servers[mcpServerName] = map[string]any{
		"type":    "stdio",
		"command": exe,
		"args":    []string{"mcp"},
	}

	if err := saveSettings(settingsPath, settings); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}

	fmt.Printf("registered %s as an MCP server in %s\n", mcpServerName, settingsPath)
	fmt.Println("restart Claude Code to pick up the change")
	return nil
}

func runInstallRemove(cmd *cobra.Command, args []string) error {
	settingsPath, err := claudeSettingsPath()
	if err != nil {
		return err
	}

	settings, err := loadSettings(settingsPath)
	if err != nil {
		fmt.Println("no settings file found, nothing to remove")
		return nil
	}

	servers, ok := settings["mcpServers"].(map[string]any)
	if !ok || servers[mcpServerName] == nil {
		fmt.Printf("%s is not registered, nothing to remove\n", mcpServerName)
		return nil
	}
	delete(servers, mcpServerName)

	if err := saveSettings(settingsPath, settings); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	fmt.Printf("removed %s from %s\n", mcpServerName, settingsPath)
	return nil
}

func runInstallStatus(cmd *cobra.Command, args []string) error {
	settingsPath, err := claudeSettingsPath()
	if err != nil {
		return err
	}

	settings, err := loadSettings(settingsPath)
	if err != nil {
		fmt.Printf("no settings file at %s\n", settingsPath)
		return nil
	}

	servers, ok := settings["mcpServers"].(map[string]any)
	if !ok || servers[mcpServerName] == nil {
		fmt.Printf("%s is not registered in %s\n", mcpServerName, settingsPath)
		return nil
	}

	entry, _ := servers[mcpServerName].(map[string]any)
	fmt.Printf("%s is registered in %s\n", mcpServerName, settingsPath)
	if command, ok := entry["command"].(string); ok {
		fmt.Printf("  command: %s\n", command)
		if _, err := exec.LookPath(command); err != nil {
			if !filepath.IsAbs(command) {
				fmt.Println("  warning: command is not an absolute path and is not on PATH")
			} else if _, statErr := os.Stat(command); statErr != nil {
				fmt.Println("  warning: command binary not found on disk")
			}
		}
	}
	if argsList, ok := entry["args"].([]any); ok {
		fmt.Printf("  args: %v\n", argsList)
	}
	return nil
}

// claudeSettingsPath resolves Claude Code's user config, ~/.claude.json,
// mirroring the teacher pack's getClaudeSettingsPath convention.
func claudeSettingsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".claude.json"), nil
}

func loadSettings(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var settings map[string]any
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("invalid JSON in %s: %w", path, err)
	}
	return settings, nil
}

func saveSettings(path string, settings map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
