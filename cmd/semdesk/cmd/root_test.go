package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_HasSubcommands(t *testing.T) {
	root := NewRootCmd()

	for _, name := range []string{"index", "search", "tags", "ask", "serve", "watch", "version"} {
		sub, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	root := NewRootCmd()

	for _, name := range []string{"config", "env", "log-level"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(name), name)
	}
	assert.Equal(t, "c", root.PersistentFlags().Lookup("config").Shorthand)
}

func TestRootCmd_ShowsHelp(t *testing.T) {
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"--help"})

	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "semdesk index")
	assert.Contains(t, buf.String(), "Available Commands")
}

func TestRootCmd_IndexRequiresFolder(t *testing.T) {
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"index"})

	assert.Error(t, root.Execute())
}

func TestLoadConfig_MissingFile(t *testing.T) {
	opts := &globalOptions{configPath: "/nonexistent/semdesk.yaml"}

	_, err := opts.loadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_UnknownEnvFallsBackToDefault(t *testing.T) {
	opts := &globalOptions{env: "no-such-env"}

	cfg, err := opts.loadConfig()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTP.Port)
}
