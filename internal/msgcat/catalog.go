package msgcat

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"

	yaml "gopkg.in/yaml.v3"
)

//go:embed messages.en.yaml
var defaultFiles embed.FS

// Catalog holds user-facing feedback templates keyed by flattened
// dot-path. Values render with text/template.
type Catalog struct {
	data map[string]string
}

// New loads the embedded default messages.
func New() (*Catalog, error) {
	c := &Catalog{data: make(map[string]string)}
	raw, err := fs.ReadFile(defaultFiles, "messages.en.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded messages: %w", err)
	}
	if err := c.applyYAML(raw); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) applyYAML(raw []byte) error {
	var tree map[string]any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return fmt.Errorf("parse messages: %w", err)
	}
	flatten("", tree, c.data)
	return nil
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch t := v.(type) {
		case map[string]any:
			flatten(key, t, out)
		case string:
			out[key] = t
		default:
			out[key] = fmt.Sprintf("%v", t)
		}
	}
}

// Render looks up the template by key and executes it with data. An
// unknown key or a template error falls back to the key itself so a
// user always gets some feedback.
func (c *Catalog) Render(key string, data any) string {
	text, ok := c.data[key]
	if !ok {
		return key
	}
	if !strings.Contains(text, "{{") {
		return text
	}
	tmpl, err := template.New(key).Parse(text)
	if err != nil {
		return key
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return key
	}
	return b.String()
}
