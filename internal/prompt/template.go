package prompt

import (
	"errors"
	"fmt"
	"strings"
	"text/template"
)

var ErrMissingSlot = errors.New("missing required prompt slot")

var funcs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}

// Template is a named prompt with explicit required slots. Slots not listed
// in Required may be absent or empty.
type Template struct {
	Name     string
	Content  string
	Required []string
	template *template.Template
}

func NewTemplate(name, content string, required ...string) (*Template, error) {
	tmpl, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	return &Template{
		Name:     name,
		Content:  content,
		Required: required,
		template: tmpl,
	}, nil
}

func MustTemplate(name, content string, required ...string) *Template {
	t, err := NewTemplate(name, content, required...)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Template) Render(vars map[string]any) (string, error) {
	for _, slot := range t.Required {
		v, ok := vars[slot]
		if !ok || v == nil {
			return "", fmt.Errorf("%w: %s.%s", ErrMissingSlot, t.Name, slot)
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			return "", fmt.Errorf("%w: %s.%s", ErrMissingSlot, t.Name, slot)
		}
	}
	var buf strings.Builder
	if err := t.template.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", t.Name, err)
	}
	return buf.String(), nil
}
