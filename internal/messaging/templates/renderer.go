// Package templates renders the short texts sent over WhatsApp.
package templates

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"text/template"
)

// Renderer renders small text templates for outbound messaging. Parsed
// templates are cached by name and text, so overrides edited at runtime are
// picked up on the next render.
type Renderer struct {
	mu    sync.Mutex
	cache map[string]*template.Template
}

// NewRenderer creates a renderer with an empty cache.
func NewRenderer() *Renderer {
	return &Renderer{cache: make(map[string]*template.Template)}
}

var funcs = template.FuncMap{
	"brl":   FormatBRL,
	"upper": strings.ToUpper,
}

// Render compiles the provided template text with strict missing-key semantics.
func (r *Renderer) Render(name, tmpl string, data any) (string, error) {
	if tmpl == "" {
		return "", fmt.Errorf("templates: template text required")
	}
	t, err := r.parse(name, tmpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("templates: execute %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func (r *Renderer) parse(name, tmpl string) (*template.Template, error) {
	key := name + "\x00" + tmpl
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cache == nil {
		r.cache = make(map[string]*template.Template)
	}
	if t, ok := r.cache[key]; ok {
		return t, nil
	}
	t, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return nil, fmt.Errorf("templates: parse %s: %w", name, err)
	}
	r.cache[key] = t
	return t, nil
}

// FormatBRL formats cents as "R$ 1.234,56".
func FormatBRL(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	whole := fmt.Sprintf("%d", cents/100)
	var grouped strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(r)
	}
	return fmt.Sprintf("%sR$ %s,%02d", sign, grouped.String(), cents%100)
}
