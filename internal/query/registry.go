// Package query holds the named query templates callers refer to by id.
//
// A template is text/template source that renders to filter text. Rendering happens against
// the caller's parameter map, so optional clauses can be switched on and off:
//
//	queries:
//	  - id: adults
//	    text: |
//	      age >= params.minAge
//	      {{- if .prefix}} && name.startsWith(params.prefix){{end}}
package query

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownQuery   = errors.New("unknown query")
	ErrInvalidQuery   = errors.New("invalid query template")
	ErrRenderTemplate = errors.New("failed to render query")
)

// Definition is the file form of a template.
type Definition struct {
	ID   string `yaml:"id"`
	Text string `yaml:"text"`
}

type file struct {
	Queries []Definition `yaml:"queries"`
}

// Template is a parsed query template.
type Template struct {
	id   string
	tmpl *template.Template
}

func (t *Template) ID() string {
	return t.id
}

// Render executes the template with params and returns the trimmed query text. Blank output
// means "no filter".
func (t *Template) Render(params map[string]any) (string, error) {
	if params == nil {
		params = map[string]any{}
	}
	var sb strings.Builder
	if err := t.tmpl.Execute(&sb, params); err != nil {
		return "", fmt.Errorf("%w %s: %v", ErrRenderTemplate, t.id, err)
	}
	return strings.TrimSpace(sb.String()), nil
}

// Registry is a read-only set of templates.
type Registry struct {
	templates map[string]*Template
}

// New parses definitions into a registry.
func New(defs []Definition) (*Registry, error) {
	r := &Registry{templates: make(map[string]*Template, len(defs))}
	for _, d := range defs {
		id := strings.TrimSpace(d.ID)
		if id == "" {
			return nil, fmt.Errorf("%w: missing id", ErrInvalidQuery)
		}
		if _, exists := r.templates[id]; exists {
			return nil, fmt.Errorf("%w: duplicate id %s", ErrInvalidQuery, id)
		}
		tmpl, err := template.New(id).Option("missingkey=zero").Parse(d.Text)
		if err != nil {
			return nil, fmt.Errorf("%w %s: %v", ErrInvalidQuery, id, err)
		}
		r.templates[id] = &Template{id: id, tmpl: tmpl}
	}
	return r, nil
}

// Load reads a YAML template file. An empty path yields an empty registry.
func Load(path string) (*Registry, error) {
	if path == "" {
		return New(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read query file: %w", err)
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse query file %s: %w", path, err)
	}
	return New(f.Queries)
}

// Lookup returns the template registered under id.
func (r *Registry) Lookup(id string) (*Template, error) {
	t, exists := r.templates[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownQuery, id)
	}
	return t, nil
}

// IDs returns the registered ids in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.templates))
	for id := range r.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
