package loader

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/leapstack-labs/stache/internal/starlark"
	"github.com/leapstack-labs/stache/internal/template"
	"gopkg.in/yaml.v3"
)

// VarsLoader reads variable files into a template context.
// Supported formats: .json, .yaml/.yml, .toml, .env and .star.
type VarsLoader struct {
	eval   *starlark.Evaluator
	logger *slog.Logger
}

// NewVarsLoader creates a vars loader. A nil logger discards output.
func NewVarsLoader(logger *slog.Logger) *VarsLoader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &VarsLoader{
		eval:   starlark.NewEvaluator(logger),
		logger: logger,
	}
}

// Load reads each file in order and merges the results, later files
// overriding earlier ones. A .star file sees everything loaded before it.
func (l *VarsLoader) Load(paths ...string) (template.Map, error) {
	vars := template.Map{}
	for _, path := range paths {
		loaded, err := l.LoadFile(path, vars)
		if err != nil {
			return nil, err
		}
		vars = template.Merge(vars, loaded)
	}
	return vars, nil
}

// LoadFile reads a single vars file. base is only consulted by .star files.
func (l *VarsLoader) LoadFile(path string, base template.Map) (template.Map, error) {
	ext := strings.ToLower(filepath.Ext(path))
	l.logger.Debug("loading vars", "file", path, "format", ext)

	if ext == ".star" {
		return l.eval.ExecFile(path, base)
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: vars paths are user-supplied
	if err != nil {
		return nil, &LoadError{File: path, Message: fmt.Sprintf("failed to read file: %v", err)}
	}

	switch ext {
	case ".json":
		return DecodeJSONVars(path, data)
	case ".yaml", ".yml":
		return DecodeYAMLVars(path, data)
	case ".toml":
		return DecodeTOMLVars(path, data)
	case ".env":
		return DecodeDotenvVars(path, data)
	default:
		return nil, &LoadError{File: path, Message: fmt.Sprintf("unsupported vars format %q (want .json, .yaml, .yml, .toml, .env or .star)", ext)}
	}
}

// DecodeJSONVars decodes a JSON object into a context. Numbers keep their
// exact decimal text.
func DecodeJSONVars(name string, data []byte) (template.Map, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, &LoadError{File: name, Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	return template.NewContext(raw), nil
}

// DecodeYAMLVars decodes a YAML mapping into a context.
func DecodeYAMLVars(name string, data []byte) (template.Map, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &LoadError{File: name, Message: fmt.Sprintf("invalid YAML: %v", err)}
	}
	return template.NewContext(raw), nil
}

// DecodeTOMLVars decodes a TOML document into a context.
func DecodeTOMLVars(name string, data []byte) (template.Map, error) {
	var raw map[string]any
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return nil, &LoadError{File: name, Message: fmt.Sprintf("invalid TOML: %v", err)}
	}
	return template.NewContext(raw), nil
}

// DecodeDotenvVars decodes KEY=value lines into a flat context of strings.
func DecodeDotenvVars(name string, data []byte) (template.Map, error) {
	env, err := godotenv.UnmarshalBytes(data)
	if err != nil {
		return nil, &LoadError{File: name, Message: fmt.Sprintf("invalid .env file: %v", err)}
	}
	vars := make(template.Map, len(env))
	for k, v := range env {
		vars[k] = template.String(v)
	}
	return vars, nil
}
