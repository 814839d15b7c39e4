// Package loader reads template sources and variable files from disk.
package loader

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Frontmatter represents the parsed YAML header of a template file.
// Unknown fields cause parse errors (use Vars for template variables).
type Frontmatter struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Delimiters  *DelimiterSpec `yaml:"delimiters"`
	Vars        map[string]any `yaml:"vars"`
}

// DelimiterSpec overrides the delimiters a single template is compiled with.
type DelimiterSpec struct {
	Open  string `yaml:"open"`
	Close string `yaml:"close"`
}

// FrontmatterResult holds the result of frontmatter extraction.
type FrontmatterResult struct {
	Config  *Frontmatter
	Body    string // template content after frontmatter
	HasYAML bool   // whether frontmatter was found
	Lines   int    // number of lines the frontmatter block occupied
}

// frontmatterPattern matches a leading --- ... --- block.
var frontmatterPattern = regexp.MustCompile(`(?s)\A---[ \t]*\r?\n(?:(.*?)\r?\n)?---[ \t]*(?:\r?\n|\z)`)

// ExtractFrontmatter splits YAML frontmatter from template content.
// Content without a leading --- line is returned unchanged.
func ExtractFrontmatter(content string) (*FrontmatterResult, error) {
	result := &FrontmatterResult{
		Config: &Frontmatter{},
		Body:   content,
	}

	loc := frontmatterPattern.FindStringSubmatchIndex(content)
	if loc == nil {
		return result, nil
	}

	result.HasYAML = true
	block := content[:loc[1]]
	result.Body = content[loc[1]:]
	result.Lines = strings.Count(block, "\n")

	var yamlContent string
	if loc[2] >= 0 {
		yamlContent = content[loc[2]:loc[3]]
	}
	config, err := parseFrontmatterYAML(yamlContent)
	if err != nil {
		return nil, err
	}

	result.Config = config
	return result, nil
}

var knownFields = map[string]bool{
	"name":        true,
	"description": true,
	"delimiters":  true,
	"vars":        true,
}

// parseFrontmatterYAML parses YAML content with strict field validation.
func parseFrontmatterYAML(yamlContent string) (*Frontmatter, error) {
	// First, decode into a map to check for unknown fields
	var rawMap map[string]any
	if err := yaml.Unmarshal([]byte(yamlContent), &rawMap); err != nil {
		return nil, &FrontmatterParseError{
			Message: fmt.Sprintf("invalid YAML: %v", err),
		}
	}

	for field := range rawMap {
		if !knownFields[field] {
			return nil, &UnknownFieldError{Field: field}
		}
	}

	var config Frontmatter
	if err := yaml.Unmarshal([]byte(yamlContent), &config); err != nil {
		return nil, &FrontmatterParseError{
			Message: fmt.Sprintf("failed to parse frontmatter: %v", err),
		}
	}

	if d := config.Delimiters; d != nil && (d.Open == "" || d.Close == "") {
		return nil, &FrontmatterParseError{
			Message: "delimiters needs both open and close",
		}
	}

	return &config, nil
}

// FrontmatterParseError represents a frontmatter parsing error.
type FrontmatterParseError struct {
	File    string
	Line    int
	Message string
}

func (e *FrontmatterParseError) Error() string {
	if e.File != "" {
		if e.Line > 0 {
			return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
		}
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	return e.Message
}

// UnknownFieldError represents an error for unknown frontmatter fields.
type UnknownFieldError struct {
	File  string
	Field string
}

func (e *UnknownFieldError) Error() string {
	msg := fmt.Sprintf("unknown field %q in frontmatter, use \"vars\" for template variables", e.Field)
	if e.File != "" {
		return fmt.Sprintf("%s: %s", e.File, msg)
	}
	return msg
}
