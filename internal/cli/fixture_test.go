package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Harshitk-cp/mindkernel/internal/domain"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

const memoryMarkdown = `---
id: mem_md
kind: event
source:
  source_type: chat
  source_ref: session-7
evidence_refs: [f1, f2]
confidence: 0.8
---

User asked for a refund on order 42.
`

func TestLoadFixture(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name        string
		file        string
		content     string
		wantID      string
		wantContent string
		wantRefs    int
	}{
		{
			name:        "json",
			file:        "m.json",
			content:     `{"id":"mem_json","kind":"event","content":"hello","evidence_refs":["f1"]}`,
			wantID:      "mem_json",
			wantContent: "hello",
			wantRefs:    1,
		},
		{
			name:        "yaml",
			file:        "m.yaml",
			content:     "id: mem_yaml\nkind: event\ncontent: hi there\nevidence_refs:\n  - f1\n  - f2\n",
			wantID:      "mem_yaml",
			wantContent: "hi there",
			wantRefs:    2,
		},
		{
			name:        "markdown body fills content",
			file:        "m.md",
			content:     memoryMarkdown,
			wantID:      "mem_md",
			wantContent: "User asked for a refund on order 42.",
			wantRefs:    2,
		},
		{
			name:        "markdown front matter wins",
			file:        "m2.md",
			content:     "---\nid: mem_fm\ncontent: from front matter\n---\nbody text\n",
			wantID:      "mem_fm",
			wantContent: "from front matter",
		},
		{
			name:        "markdown without front matter",
			file:        "m3.md",
			content:     "\nJust a note.\n",
			wantContent: "Just a note.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.file, tt.content)
			var m domain.Memory
			if err := loadFixture(path, "content", &m); err != nil {
				t.Fatalf("loadFixture: %v", err)
			}
			if m.ID != tt.wantID {
				t.Errorf("ID = %q, want %q", m.ID, tt.wantID)
			}
			if m.Content != tt.wantContent {
				t.Errorf("Content = %q, want %q", m.Content, tt.wantContent)
			}
			if len(m.EvidenceRefs) != tt.wantRefs {
				t.Errorf("EvidenceRefs = %v, want %d refs", m.EvidenceRefs, tt.wantRefs)
			}
		})
	}
}

func TestLoadFixture_MarkdownSource(t *testing.T) {
	path := writeFile(t, t.TempDir(), "m.md", memoryMarkdown)
	var m domain.Memory
	if err := loadFixture(path, "content", &m); err != nil {
		t.Fatalf("loadFixture: %v", err)
	}
	if m.Source.SourceType != "chat" || m.Source.SourceRef != "session-7" {
		t.Errorf("Source = %+v", m.Source)
	}
	if m.Confidence != 0.8 {
		t.Errorf("Confidence = %v, want 0.8", m.Confidence)
	}
}

func TestLoadFixture_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"unsupported extension", "m.txt", "x", "unsupported fixture format"},
		{"unterminated front matter", "m.md", "---\nid: x\n", "unterminated front matter"},
		{"bad json", "m.json", "{", "decode"},
		{"bad yaml", "m.yaml", "id: [unclosed", "decode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.file, tt.content)
			var m domain.Memory
			err := loadFixture(path, "content", &m)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}

	var m domain.Memory
	if err := loadFixture(filepath.Join(dir, "missing.json"), "", &m); err == nil {
		t.Error("expected error for missing file")
	}
}
