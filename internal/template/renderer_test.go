package template

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func renderCase(t *testing.T, input string, ctx Map) string {
	t.Helper()
	out, err := RenderString(input, ctx)
	require.NoError(t, err, "unexpected error")
	return out
}

func TestRenderer_Variables(t *testing.T) {
	ctx := NewContext(map[string]any{
		"name":  "World",
		"html":  "<b>\"Tom\" & 'Jerry'</b>",
		"n":     42,
		"price": 1.50,
		"zero":  0,
		"yes":   true,
		"nil":   nil,
		"user":  map[string]any{"name": "Ada", "tags": []any{"x", "y"}},
		"list":  []any{1, "two", true},
	})

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain text", "no directives at all", "no directives at all"},
		{"simple", "Hello, {{name}}!", "Hello, World!"},
		{"padded", "{{  name  }}", "World"},
		{"escaped", "{{html}}", "&lt;b&gt;&quot;Tom&quot; &amp; &#39;Jerry&#39;&lt;/b&gt;"},
		{"triple raw", "{{{html}}}", "<b>\"Tom\" & 'Jerry'</b>"},
		{"ampersand raw", "{{& html}}", "<b>\"Tom\" & 'Jerry'</b>"},
		{"integer", "{{n}}", "42"},
		{"decimal canonical", "{{price}}", "1.5"},
		{"zero", "{{zero}}", "0"},
		{"bool", "{{yes}}", "true"},
		{"null renders empty", "[{{nil}}]", "[]"},
		{"missing renders empty", "[{{nope}}]", "[]"},
		{"dotted path", "{{user.name}}", "Ada"},
		{"list index", "{{user.tags.1}}", "y"},
		{"index out of range", "[{{user.tags.5}}]", "[]"},
		{"path through scalar", "[{{name.length}}]", "[]"},
		{"list as JSON", "{{{list}}}", `[1,"two",true]`},
		{"map as JSON sorted", "{{{user}}}", `{"name":"Ada","tags":["x","y"]}`},
		{"comment dropped", "a{{! hidden }}b", "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, renderCase(t, tt.input, ctx))
		})
	}
}

func TestRenderer_Truthiness(t *testing.T) {
	tests := []struct {
		name   string
		value  any
		truthy bool
	}{
		{"null", nil, false},
		{"false", false, false},
		{"true", true, true},
		{"zero", 0, true},
		{"empty string", "", true},
		{"string false", "false", true},
		{"empty list", []any{}, false},
		{"non-empty list", []any{1}, true},
		{"empty map", map[string]any{}, false},
		{"non-empty map", map[string]any{"k": 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := NewContext(map[string]any{"v": tt.value})
			out := renderCase(t, "{{#if v}}T{{/if}}{{^v}}F{{/v}}", ctx)
			if tt.truthy {
				assert.Equal(t, "T", out)
			} else {
				assert.Equal(t, "F", out)
			}
		})
	}
}

func TestRenderer_Sections(t *testing.T) {
	people := NewContext(map[string]any{
		"title": "Team",
		"people": []any{
			map[string]any{"name": "Ann", "age": 31},
			map[string]any{"name": "Bob", "age": 27},
			map[string]any{"name": "Cid"},
		},
		"user":   map[string]any{"name": "Ada"},
		"nums":   []any{1, 2, 3},
		"nested": []any{[]any{"a", "b"}, []any{"c"}},
		"flag":   "on",
	})

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"list of maps", "{{#people}}<{{name}}>{{/people}}", "<Ann><Bob><Cid>"},
		{"outer scope visible", "{{#people}}{{title}}:{{name}} {{/people}}", "Team:Ann Team:Bob Team:Cid "},
		{"missing field in element", "{{#people}}{{age}},{{/people}}", "31,27,,"},
		{"map pushes scope", "{{#user}}{{name}}{{/user}}", "Ada"},
		{"scalar list with dot", "{{#nums}}{{.}}{{/nums}}", "123"},
		{"this", "{{#nums}}{{this}}{{/nums}}", "123"},
		{"nested lists", "{{#nested}}[{{#.}}{{.}}{{/.}}]{{/nested}}", "[ab][c]"},
		{"scalar renders once", "{{#flag}}{{flag}}!{{/flag}}", "on!"},
		{"negated missing", "{{^nobody}}none{{/nobody}}", "none"},
		{"negated present", "{{^people}}none{{/people}}", ""},
		{"section over missing", "a{{#nobody}}x{{/nobody}}b", "ab"},
		{"index", "{{#nums}}{{@index}}{{/nums}}", "012"},
		{"first and last", "{{#nums}}{{#if @first}}[{{/if}}{{.}}{{#if @last}}]{{/if}}{{/nums}}", "[123]"},
		{"no loop var outside loop", "[{{@index}}]", "[]"},
		{"deep path inside section", "{{#people}}{{user.name}}{{/people}}", "AdaAdaAda"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, renderCase(t, tt.input, people))
		})
	}
}

func TestRenderer_Helpers(t *testing.T) {
	ctx := NewContext(map[string]any{
		"A":     "true",
		"B":     "XYZ",
		"off":   false,
		"items": []any{"x", "y"},
		"env":   map[string]any{"b": "2", "a": "1"},
		"user":  map[string]any{"name": "Ada"},
	})

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"if truthy", "{{#if A}}{{B}}{{/if}}", "XYZ"},
		{"if falsy", "{{#if off}}{{B}}{{/if}}", ""},
		{"if closed by full name", "{{#if A}}{{B}}{{/if A}}", "XYZ"},
		{"if does not push scope", "{{#if user}}[{{name}}]{{/if}}", "[]"},
		{"unless", "{{#unless off}}shown{{/unless}}", "shown"},
		{"unless truthy", "{{#unless A}}shown{{/unless}}", ""},
		{"each list", "{{#each items}}{{@index}}={{.}};{{/each}}", "0=x;1=y;"},
		{"each map sorted by key", "{{#each env}}{{@key}}={{.}};{{/each}}", "a=1;b=2;"},
		{"with", "{{#with user}}{{name}}{{/with}}", "Ada"},
		{"with missing", "{{#with nobody}}x{{/with}}", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, renderCase(t, tt.input, ctx))
		})
	}

	t.Run("if with false bool", func(t *testing.T) {
		out := renderCase(t, "{{#if A}}{{B}}{{/if}}", Map{"A": Bool(false), "B": String("XYZ")})
		assert.Equal(t, "", out)
	})
}

func TestRenderer_InnerScopeShadows(t *testing.T) {
	ctx := NewContext(map[string]any{
		"name":  "outer",
		"inner": map[string]any{"name": "inner"},
	})
	out := renderCase(t, "{{name}} {{#inner}}{{name}}{{/inner}} {{name}}", ctx)
	assert.Equal(t, "outer inner outer", out)
}

func TestRenderer_DelimiterChange(t *testing.T) {
	ctx := Map{"x": String("1"), "y": String("2")}
	out := renderCase(t, "{{x}} {{=<% %>=}}<%y%> {{x}}", ctx)
	assert.Equal(t, "1 2 {{x}}", out)
}

func TestRenderer_Deterministic(t *testing.T) {
	ctx := NewContext(map[string]any{
		"m": map[string]any{"z": 1, "a": 2, "k": []any{3, 4}},
	})
	tmpl := MustCompile("{{#each m}}{{@key}}{{/each}}|{{{m}}}")

	first := tmpl.Render(ctx)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, tmpl.Render(ctx))
	}
	assert.Equal(t, `akz|{"a":2,"k":[3,4],"z":1}`, first)
}

func TestRenderer_NumberPrecision(t *testing.T) {
	d := decimal.RequireFromString("12345678901234567890.000100")
	out := renderCase(t, "{{n}}", Map{"n": NewNumber(d)})
	assert.Equal(t, "12345678901234567890.0001", out)
}

func TestRenderer_NilContext(t *testing.T) {
	out := renderCase(t, "a{{b}}c{{#d}}e{{/d}}", nil)
	assert.Equal(t, "ac", out)
}

func TestRenderer_NilValuesActAsNull(t *testing.T) {
	tests := []struct {
		name  string
		input string
		ctx   Map
		want  string
	}{
		{"map value variable", "[{{a}}]", Map{"a": nil}, "[]"},
		{"map value section", "{{#a}}yes{{/a}}{{^a}}no{{/a}}", Map{"a": nil}, "no"},
		{"nested map value", "[{{a.b}}]{{^a.b}}no{{/a.b}}", Map{"a": Map{"b": nil}}, "[]no"},
		{"list element dot", "{{#xs}}<{{.}}>{{/xs}}", Map{"xs": List{String("a"), nil}}, "<a><>"},
		{"list element section", "{{#xs}}{{#.}}y{{/.}}{{^.}}n{{/.}}{{/xs}}", Map{"xs": List{nil, String("a")}}, "ny"},
		{"list element by index", "[{{xs.0}}]", Map{"xs": List{nil}}, "[]"},
		{"each over nil element", "{{#each xs}}{{@index}}:{{this}};{{/each}}", Map{"xs": List{nil, Int(1)}}, "0:;1:1;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out string
			require.NotPanics(t, func() { out = renderCase(t, tt.input, tt.ctx) })
			assert.Equal(t, tt.want, out)
		})
	}
}
