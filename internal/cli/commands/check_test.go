package commands

import (
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/leapstack-labs/stache/internal/cli/output"
	"github.com/leapstack-labs/stache/internal/cli/testutil"
	"github.com/leapstack-labs/stache/internal/loader"
	"github.com/leapstack-labs/stache/internal/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckCommand_TemplatesDir(t *testing.T) {
	testutil.SetupTestProject(t)

	out, _, err := execute(t, NewCheckCommand())
	require.NoError(t, err)

	assert.Contains(t, out, "# Template Check")
	assert.Contains(t, out, "**Files:** 2")
	assert.Contains(t, out, "**Errors:** 0")
	testutil.AssertValidMarkdown(t, out)
}

func TestCheckCommand_Text(t *testing.T) {
	testutil.SetupTestProject(t)
	t.Setenv("STACHE_OUTPUT", "text")

	out, _, err := execute(t, NewCheckCommand())
	require.NoError(t, err)
	assert.Contains(t, out, "2 templates OK")
	testutil.AssertNoANSI(t, out)
}

func TestCheckCommand_ReportsEveryFile(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{
		"templates/ok.mustache":       "{{#a}}{{b}}{{/a}}",
		"templates/mismatch.mustache": "{{#a}}x{{/b}}",
		"templates/nested/eof.html":   "---\nname: eof\n---\nline\n{{name",
		"templates/frontmatter.txt":   "---\ncolour: red\n---\nx",
		"templates/ignored.json":      "{{#not checked",
	})
	t.Chdir(dir)
	t.Setenv("STACHE_OUTPUT", "json")

	out, _, err := execute(t, NewCheckCommand())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 of 4 templates failed")

	var result output.CheckOutput
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 4, result.Files)
	assert.False(t, result.OK)
	require.Len(t, result.Diagnostics, 3)

	byCode := make(map[string]output.Diagnostic)
	for _, d := range result.Diagnostics {
		byCode[d.Code] = d
	}

	mismatch := byCode[string(template.CodeMismatchedSection)]
	assert.Contains(t, mismatch.File, "mismatch.mustache")
	assert.Equal(t, 1, mismatch.Line)
	assert.Equal(t, 8, mismatch.Column)
	assert.NotEmpty(t, mismatch.TraceID)

	eof := byCode[string(template.CodeUnexpectedEOF)]
	assert.Contains(t, eof.File, "eof.html")
	assert.Equal(t, 5, eof.Line, "line counts the frontmatter block")
	assert.Equal(t, 1, eof.Column)

	fm := byCode[codeFrontmatter]
	assert.Contains(t, fm.File, "frontmatter.txt")
	assert.Contains(t, fm.Message, "colour")
}

func TestCheckCommand_ExplicitPaths(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{
		"a.custom":          "{{x}}",
		"more/b.tpl":        "{{#y}}{{/y}}",
		"more/notes.readme": "{{#broken",
	})
	t.Chdir(dir)

	out, _, err := execute(t, NewCheckCommand(), "a.custom", "more")
	require.NoError(t, err, "no templates dir is needed when paths are given")
	assert.Contains(t, out, "**Files:** 2")

	_, _, err = execute(t, NewCheckCommand(), "missing.tpl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot check missing.tpl")
}

func TestCheckCommand_MissingTemplatesDir(t *testing.T) {
	t.Chdir(t.TempDir())

	_, _, err := execute(t, NewCheckCommand())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "templates directory does not exist")
}

func TestDiagnose(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
		wantMsg  string
		wantLine int
	}{
		{
			name:     "template error",
			err:      template.NewError(template.CodeUnclosedSection, template.Position{Line: 3, Column: 2}, `section "a" is never closed`),
			wantCode: "UNCLOSED_SECTION",
			wantMsg:  `section "a" is never closed`,
			wantLine: 3,
		},
		{
			name:     "frontmatter parse error",
			err:      &loader.FrontmatterParseError{File: "x", Line: 2, Message: "bad yaml"},
			wantCode: codeFrontmatter,
			wantMsg:  "bad yaml",
			wantLine: 2,
		},
		{
			name:     "unknown field",
			err:      &loader.UnknownFieldError{File: "x", Field: "colour"},
			wantCode: codeFrontmatter,
			wantMsg:  `unknown field "colour"`,
		},
		{
			name:     "load error",
			err:      &loader.LoadError{File: "x", Message: "failed to read file: boom"},
			wantCode: codeLoadError,
			wantMsg:  "failed to read file: boom",
		},
		{
			name:     "other error",
			err:      errors.New("something else"),
			wantCode: codeLoadError,
			wantMsg:  "something else",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := diagnose("x", tt.err)
			assert.Equal(t, "x", d.File)
			assert.Equal(t, tt.wantCode, d.Code)
			assert.Equal(t, tt.wantMsg, d.Message)
			assert.Equal(t, tt.wantLine, d.Line)
		})
	}
}

func TestLocation(t *testing.T) {
	assert.Equal(t, "a:1:2", location(output.Diagnostic{File: "a", Line: 1, Column: 2}))
	assert.Equal(t, "a:4", location(output.Diagnostic{File: "a", Line: 4}))
	assert.Equal(t, "a", location(output.Diagnostic{File: "a"}))
}
