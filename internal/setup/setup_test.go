package setup

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "client", "config.json")
	binary := filepath.Join(dir, "mcp-server")
	require.NoError(t, os.WriteFile(binary, []byte("#!/bin/sh\n"), 0755))

	t.Run("Creates_Config_File", func(t *testing.T) {
		written, err := Register(Options{ConfigPath: configPath, BinaryPath: binary, DataDir: "/data/hr"})
		require.NoError(t, err)
		assert.Equal(t, configPath, written)

		config, err := LoadClientConfig(configPath)
		require.NoError(t, err)
		entry, ok := config.MCPServers[ServerName]
		require.True(t, ok)
		assert.Equal(t, binary, entry.Command)
		assert.Equal(t, "/data/hr", entry.Env["HOSPITAL_REC_DATA_DIR"])
	})

	t.Run("Keeps_Other_Servers_And_Keys", func(t *testing.T) {
		existing := `{"theme":"dark","mcpServers":{"other":{"command":"/bin/other"}}}`
		path := filepath.Join(dir, "existing.json")
		require.NoError(t, os.WriteFile(path, []byte(existing), 0644))

		_, err := Register(Options{ConfigPath: path, BinaryPath: binary})
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		var raw map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(data, &raw))
		assert.JSONEq(t, `"dark"`, string(raw["theme"]))

		config, err := LoadClientConfig(path)
		require.NoError(t, err)
		assert.Contains(t, config.MCPServers, "other")
		assert.Contains(t, config.MCPServers, ServerName)
	})

	t.Run("Invalid_Existing_File", func(t *testing.T) {
		path := filepath.Join(dir, "broken.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

		_, err := Register(Options{ConfigPath: path, BinaryPath: binary})
		assert.Error(t, err)
	})
}

func TestUnregister(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	removed, err := Unregister(path)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = Register(Options{ConfigPath: path, BinaryPath: "/usr/bin/true"})
	require.NoError(t, err)

	removed, err = Unregister(path)
	require.NoError(t, err)
	assert.True(t, removed)

	config, err := LoadClientConfig(path)
	require.NoError(t, err)
	assert.NotContains(t, config.MCPServers, ServerName)
}

func TestGetStatus(t *testing.T) {
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "alerts.db"), nil, 0644))

	t.Run("Not_Registered", func(t *testing.T) {
		status, err := GetStatus(filepath.Join(dir, "none.json"))
		require.NoError(t, err)
		assert.False(t, status.Registered)
		assert.NotEmpty(t, status.Issues)
	})

	t.Run("Registered_With_Missing_Binary", func(t *testing.T) {
		path := filepath.Join(dir, "config.json")
		_, err := Register(Options{ConfigPath: path, BinaryPath: filepath.Join(dir, "gone"), DataDir: dataDir})
		require.NoError(t, err)

		status, err := GetStatus(path)
		require.NoError(t, err)
		assert.True(t, status.Registered)
		assert.False(t, status.BinaryFound)
		assert.Equal(t, dataDir, status.DataDir)
		assert.True(t, status.DataDirFound)
		assert.True(t, status.AlertsDB)
		require.Len(t, status.Issues, 1)
		assert.Contains(t, status.Issues[0], "binary not found")
	})
}

func TestCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	run := func(stdin string, args ...string) (string, error) {
		cmd := NewCommand()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetIn(bytes.NewBufferString(stdin))
		cmd.SetArgs(args)
		err := cmd.Execute()
		return out.String(), err
	}

	t.Run("Register_Declined", func(t *testing.T) {
		out, err := run("n\n", "register", "--config", path, "--binary", "/usr/bin/true")
		require.NoError(t, err)
		assert.Contains(t, out, "cancelled")
		_, statErr := os.Stat(path)
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("Register_Confirmed", func(t *testing.T) {
		out, err := run("", "register", "--config", path, "--binary", "/usr/bin/true", "--yes")
		require.NoError(t, err)
		assert.Contains(t, out, "registered")
	})

	t.Run("Status", func(t *testing.T) {
		out, err := run("", "status", "--config", path)
		require.NoError(t, err)
		assert.Contains(t, out, "Registered:  yes")
	})

	t.Run("Unregister", func(t *testing.T) {
		out, err := run("", "unregister", "--config", path)
		require.NoError(t, err)
		assert.Contains(t, out, "removed")
	})
}
