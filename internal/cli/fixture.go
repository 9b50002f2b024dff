package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var frontMatterDelim = []byte("---")

// loadFixture decodes a payload file into v. JSON and YAML files are read
// as documents. Markdown files carry the fields in YAML front matter and
// the body fills bodyField when the front matter leaves it empty.
//
// YAML is normalised through JSON so the domain types' json tags apply.
func loadFixture(path, bodyField string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(raw, v); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		return nil
	case ".yaml", ".yml":
		doc := map[string]any{}
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		return remarshal(doc, v)
	case ".md", ".markdown":
		doc, body, err := splitFrontMatter(raw)
		if err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		if bodyField != "" && body != "" {
			if cur, _ := doc[bodyField].(string); strings.TrimSpace(cur) == "" {
				doc[bodyField] = body
			}
		}
		return remarshal(doc, v)
	default:
		return fmt.Errorf("unsupported fixture format %q (want .json, .yaml or .md)", filepath.Ext(path))
	}
}

// splitFrontMatter separates a leading "---" delimited YAML block from the
// Markdown body.
func splitFrontMatter(raw []byte) (map[string]any, string, error) {
	doc := map[string]any{}
	trimmed := bytes.TrimLeft(raw, "\ufeff \t\r\n")
	if !bytes.HasPrefix(trimmed, frontMatterDelim) {
		return doc, strings.TrimSpace(string(raw)), nil
	}

	rest := trimmed[len(frontMatterDelim):]
	end := bytes.Index(rest, append([]byte("\n"), frontMatterDelim...))
	if end < 0 {
		return nil, "", fmt.Errorf("unterminated front matter")
	}

	if err := yaml.Unmarshal(rest[:end], &doc); err != nil {
		return nil, "", fmt.Errorf("front matter: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}

	body := rest[end+1+len(frontMatterDelim):]
	return doc, strings.TrimSpace(string(body)), nil
}

func remarshal(doc map[string]any, v any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
