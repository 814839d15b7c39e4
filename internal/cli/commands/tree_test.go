package commands

import (
	"bytes"
	"testing"

	"github.com/goccy/go-json"
	"github.com/leapstack-labs/stache/internal/cli/output"
	"github.com/leapstack-labs/stache/internal/cli/testutil"
	"github.com/leapstack-labs/stache/internal/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeCommand_JSON(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{
		"t.tpl": "---\nname: page\n---\nHi {{name}}{{#if admin}}{{{badge}}}{{/if}}{{^items}}none{{/items}}{{! c }}",
	})
	t.Chdir(dir)
	t.Setenv("STACHE_OUTPUT", "json")

	out, _, err := execute(t, NewTreeCommand(), "t.tpl")
	require.NoError(t, err)

	var root output.NodeInfo
	require.NoError(t, json.Unmarshal([]byte(out), &root))

	assert.Equal(t, "root", root.Type)
	require.Len(t, root.Children, 5)

	text := root.Children[0]
	assert.Equal(t, "text", text.Type)
	assert.Equal(t, "Hi ", text.Text)
	assert.Equal(t, 4, text.Line)

	variable := root.Children[1]
	assert.Equal(t, "variable", variable.Type)
	assert.Equal(t, "name", variable.Path)
	require.NotNil(t, variable.Escape)
	assert.True(t, *variable.Escape)

	helper := root.Children[2]
	assert.Equal(t, "section", helper.Type)
	assert.Equal(t, "if", helper.Helper)
	assert.Equal(t, "admin", helper.Path)
	require.Len(t, helper.Children, 1)
	require.NotNil(t, helper.Children[0].Escape)
	assert.False(t, *helper.Children[0].Escape)

	inverted := root.Children[3]
	assert.Equal(t, "items", inverted.Path)
	assert.True(t, inverted.Negated)

	assert.Equal(t, "comment", root.Children[4].Type)
	assert.Equal(t, "c", root.Children[4].Text)
}

func TestTreeCommand_Markdown(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{"t.tpl": "{{#each xs}}{{.}}{{/each}}"})
	t.Chdir(dir)

	out, _, err := execute(t, NewTreeCommand(), "t.tpl")
	require.NoError(t, err)

	assert.Contains(t, out, "# Tree: t.tpl")
	assert.Contains(t, out, "root\n  section #each xs @1:1\n    variable . @1:13\n")
	testutil.AssertValidMarkdown(t, out)
}

func TestTreeCommand_CompileError(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{"t.tpl": "{{#a}}"})
	t.Chdir(dir)

	_, _, err := execute(t, NewTreeCommand(), "t.tpl")
	assert.ErrorIs(t, err, template.ErrUnclosedSection)
}

func TestWriteTree(t *testing.T) {
	tmpl := template.MustCompile("a{{&b}}{{^c}}{{/c}}")

	var buf bytes.Buffer
	writeTree(&buf, nodeInfo(tmpl.Root()), 0)

	want := "root\n" +
		"  text \"a\" @1:1\n" +
		"  variable b (raw) @1:2\n" +
		"  section c (inverted) @1:8\n"
	assert.Equal(t, want, buf.String())
}
