package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/stache/internal/cli/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := NewRootCmd()

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, want := range []string{"version", "init", "render", "check", "tokens", "tree", "repl", "serve", "completion"} {
		assert.Contains(t, names, want)
	}

	for _, flag := range []string{"config", "verbose", "output", "templates-dir", "vars", "set", "delims", "max-depth"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
}

func TestRootCmd_Version(t *testing.T) {
	t.Chdir(t.TempDir())

	out, _, err := runRoot(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "stache v"+Version)

	out, _, err = runRoot(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "stache "+Version)
}

func TestRootCmd_RenderWithFlags(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vars.yaml"), []byte("user:\n  name: Ada\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "t.tpl"), []byte("{{user.name}} <%n%> <%&html%>"), 0o600))
	t.Chdir(dir)

	out, _, err := runRoot(t,
		"render", "t.tpl",
		"--vars", "vars.yaml",
		"--set", "n=2",
		"--set", "html=<b>",
		"--delims", "<% %>",
	)
	require.NoError(t, err)
	assert.Equal(t, "{{user.name}} 2 <b>", out)
}

func TestRootCmd_SetOverridesVarsFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vars.json"), []byte(`{"user": {"name": "Ada", "role": "admin"}}`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "t.tpl"), []byte("{{user.name}}/{{user.role}}"), 0o600))
	t.Chdir(dir)

	out, _, err := runRoot(t, "render", "t.tpl", "--vars", "vars.json", "--set", "user.name=Bob")
	require.NoError(t, err)
	assert.Equal(t, "Bob/admin", out)
}

func TestRootCmd_VerboseLogsToStderr(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stache.yaml"), []byte("max_depth: 8\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "t.tpl"), []byte("hi"), 0o600))
	t.Chdir(dir)

	out, errOut, err := runRoot(t, "-v", "render", "t.tpl")
	require.NoError(t, err)
	assert.Equal(t, "hi", out)
	assert.Contains(t, errOut, "using config file")
}

func TestRootCmd_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stache.yaml"), []byte("output: sideways\n"), 0o600))
	t.Chdir(dir)

	_, _, err := runRoot(t, "version")
	require.Error(t, err)
}

func TestCompletionCommand(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			out, _, err := runRoot(t, "completion", shell)
			require.NoError(t, err)
			assert.Contains(t, out, "stache")
		})
	}

	_, _, err := runRoot(t, "completion", "tcsh")
	assert.Error(t, err)
}
