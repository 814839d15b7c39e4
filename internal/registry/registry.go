// Package registry holds compiled templates by name.
// Templates are compiled once when registered and rendered many times,
// so a registry is safe to share between concurrent requests.
package registry

import (
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/leapstack-labs/stache/internal/loader"
	"github.com/leapstack-labs/stache/internal/template"
)

// TemplateExtensions are the file types LoadDir compiles.
var TemplateExtensions = map[string]bool{
	".mustache": true,
	".tpl":      true,
	".tmpl":     true,
	".html":     true,
	".txt":      true,
	".md":       true,
}

// Entry is a compiled template and its frontmatter defaults.
type Entry struct {
	// Name is the registry key: "emails/reset" for templates/emails/reset.html.
	Name     string
	Path     string
	Template *template.Template
	Defaults template.Map
}

// Render renders the entry with vars layered over its defaults.
func (e *Entry) Render(vars template.Map) string {
	return e.Template.Render(template.Merge(e.Defaults, vars))
}

// TemplateRegistry maps template names to compiled templates.
type TemplateRegistry struct {
	mu sync.RWMutex

	// byName maps full names to entries: "emails/reset" → *Entry
	byName map[string]*Entry

	// byBase maps the last path segment to a full name: "reset" → "emails/reset"
	// Note: if multiple templates share a base name, the last registered wins
	byBase map[string]string
}

// NewTemplateRegistry creates a new empty registry.
func NewTemplateRegistry() *TemplateRegistry {
	return &TemplateRegistry{
		byName: make(map[string]*Entry),
		byBase: make(map[string]string),
	}
}

// Register adds a compiled template to the registry.
func (r *TemplateRegistry) Register(e *Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.register(e)
}

func (r *TemplateRegistry) register(e *Entry) {
	r.byName[e.Name] = e
	r.byBase[baseName(e.Name)] = e.Name
}

// Replace swaps the registry contents for entries in one step.
func (r *TemplateRegistry) Replace(entries []*Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName = make(map[string]*Entry, len(entries))
	r.byBase = make(map[string]string, len(entries))
	for _, e := range entries {
		r.register(e)
	}
}

// Resolve maps a requested name to a registered one.
// Returns the registered name and true if found.
func (r *TemplateRegistry) Resolve(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// 1. Exact name
	if _, ok := r.byName[name]; ok {
		return name, true
	}

	// 2. Name with a template extension: "emails/reset.html"
	if ext := filepath.Ext(name); TemplateExtensions[ext] {
		trimmed := strings.TrimSuffix(name, ext)
		if _, ok := r.byName[trimmed]; ok {
			return trimmed, true
		}
	}

	// 3. Unqualified base name
	if full, ok := r.byBase[name]; ok {
		return full, true
	}

	return "", false
}

// Get returns the entry for a name, resolving it first.
func (r *TemplateRegistry) Get(name string) (*Entry, bool) {
	resolved, ok := r.Resolve(name)
	if !ok {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byName[resolved]
	return e, ok
}

// All returns all registered entries sorted by name.
func (r *TemplateRegistry) All() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]*Entry, 0, len(r.byName))
	for _, e := range r.byName {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

// Count returns the number of registered templates.
func (r *TemplateRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}

// LoadDir compiles every template file under dir. Files that fail to load
// are skipped and their errors joined into the returned error, so callers
// get every problem in one pass.
func LoadDir(dir string, opts ...template.Option) ([]*Entry, error) {
	var (
		entries []*Entry
		errs    []error
	)

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !TemplateExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		src, err := loader.ReadSource(path)
		if err != nil {
			errs = append(errs, err)
			return nil
		}
		tmpl, err := src.Compile(opts...)
		if err != nil {
			errs = append(errs, err)
			return nil
		}

		name := loader.TemplateName(dir, path)
		if src.Frontmatter.Name != "" {
			name = src.Frontmatter.Name
		}
		entries = append(entries, &Entry{
			Name:     name,
			Path:     path,
			Template: tmpl,
			Defaults: src.Defaults(),
		})
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	return entries, errors.Join(errs...)
}

// Reload recompiles dir into the registry. On any error the registry keeps
// its previous contents.
func (r *TemplateRegistry) Reload(dir string, opts ...template.Option) error {
	entries, err := LoadDir(dir, opts...)
	if err != nil {
		return err
	}
	r.Replace(entries)
	return nil
}

func baseName(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}
