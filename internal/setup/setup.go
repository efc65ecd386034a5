// Package setup registers the MCP server with desktop MCP clients.
package setup

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

const (
	// ServerName is the key the server is registered under.
	ServerName = "hospital-recommender"

	binaryName = "mcp-server"
	dataDirEnv = "HOSPITAL_REC_DATA_DIR"
)

// ClientConfig represents an MCP client configuration file. Unknown top-level
// keys are preserved.
type ClientConfig struct {
	MCPServers map[string]MCPServerConfig `json:"mcpServers"`
	extra      map[string]json.RawMessage
}

// MCPServerConfig represents a single MCP server configuration.
type MCPServerConfig struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// Options contains options for the registration.
type Options struct {
	ConfigPath string // client config file; empty selects the platform default
	BinaryPath string
	DataDir    string
	SeedFile   string
}

// DefaultClientConfigPath returns the desktop client's config file for this
// platform.
func DefaultClientConfigPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support", "Claude")
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			configDir = filepath.Join(xdg, "Claude")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config", "Claude")
		}
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		configDir = filepath.Join(appData, "Claude")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	return filepath.Join(configDir, "claude_desktop_config.json"), nil
}

func resolveConfigPath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return DefaultClientConfigPath()
}

// LoadClientConfig reads configPath. A missing file yields an empty config.
func LoadClientConfig(configPath string) (*ClientConfig, error) {
	config := &ClientConfig{MCPServers: make(map[string]MCPServerConfig)}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &config.extra); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if raw, ok := config.extra["mcpServers"]; ok {
		if err := json.Unmarshal(raw, &config.MCPServers); err != nil {
			return nil, fmt.Errorf("failed to parse mcpServers: %w", err)
		}
		delete(config.extra, "mcpServers")
	}
	if config.MCPServers == nil {
		config.MCPServers = make(map[string]MCPServerConfig)
	}

	return config, nil
}

// SaveClientConfig writes config to configPath, creating the directory.
func SaveClientConfig(configPath string, config *ClientConfig) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	out := make(map[string]any, len(config.extra)+1)
	for k, v := range config.extra {
		out[k] = v
	}
	out["mcpServers"] = config.MCPServers

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Register adds or updates the server entry in the client configuration and
// returns the path written.
func Register(opts Options) (string, error) {
	configPath, err := resolveConfigPath(opts.ConfigPath)
	if err != nil {
		return "", err
	}

	config, err := LoadClientConfig(configPath)
	if err != nil {
		return "", err
	}

	binaryPath := opts.BinaryPath
	if binaryPath == "" {
		binaryPath, err = findBinary()
		if err != nil {
			return "", fmt.Errorf("could not find server binary: %w", err)
		}
	}

	entry := MCPServerConfig{
		Command: binaryPath,
		Env:     make(map[string]string),
	}
	if opts.DataDir != "" {
		entry.Env[dataDirEnv] = opts.DataDir
	}
	if opts.SeedFile != "" {
		entry.Env["HOSPITAL_REC_SEED_FILE"] = opts.SeedFile
	}
	config.MCPServers[ServerName] = entry

	if err := SaveClientConfig(configPath, config); err != nil {
		return "", err
	}
	return configPath, nil
}

// Unregister removes the server entry. It reports whether an entry existed.
func Unregister(configPath string) (bool, error) {
	configPath, err := resolveConfigPath(configPath)
	if err != nil {
		return false, err
	}

	config, err := LoadClientConfig(configPath)
	if err != nil {
		return false, err
	}
	if _, ok := config.MCPServers[ServerName]; !ok {
		return false, nil
	}
	delete(config.MCPServers, ServerName)
	return true, SaveClientConfig(configPath, config)
}

func findBinary() (string, error) {
	if path, err := exec.LookPath(binaryName); err == nil {
		return path, nil
	}

	locations := []string{
		"./" + binaryName,
		"./bin/" + binaryName,
		filepath.Join(os.Getenv("HOME"), ".local", "bin", binaryName),
		"/usr/local/bin/" + binaryName,
	}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			if abs, err := filepath.Abs(loc); err == nil {
				return abs, nil
			}
			return loc, nil
		}
	}

	return "", fmt.Errorf("binary '%s' not found in common locations", binaryName)
}

// Status represents the current setup status.
type Status struct {
	ConfigPath   string
	Registered   bool
	ServerPath   string
	BinaryFound  bool
	DataDir      string
	DataDirFound bool
	AlertsDB     bool
	Issues       []string
}

// GetStatus inspects the client configuration and the data directory.
func GetStatus(configPath string) (*Status, error) {
	status := &Status{Issues: []string{}}

	configPath, err := resolveConfigPath(configPath)
	if err != nil {
		return nil, err
	}
	status.ConfigPath = configPath

	config, err := LoadClientConfig(configPath)
	if err != nil {
		status.Issues = append(status.Issues, fmt.Sprintf("Could not load client config: %v", err))
	} else if entry, ok := config.MCPServers[ServerName]; ok {
		status.Registered = true
		status.ServerPath = entry.Command
		status.DataDir = entry.Env[dataDirEnv]

		if _, err := os.Stat(entry.Command); err == nil {
			status.BinaryFound = true
		} else {
			status.Issues = append(status.Issues, fmt.Sprintf("Server binary not found at: %s", entry.Command))
		}
	} else {
		status.Issues = append(status.Issues, "Server is not registered with the client")
	}

	if status.DataDir == "" {
		status.DataDir = DefaultDataDir()
	}
	if _, err := os.Stat(status.DataDir); err == nil {
		status.DataDirFound = true
		if _, err := os.Stat(filepath.Join(status.DataDir, "alerts.db")); err == nil {
			status.AlertsDB = true
		}
	}

	return status, nil
}

// DefaultDataDir returns the default data directory path.
func DefaultDataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".hospital-recommender")
}
