package parser

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\ntitle: Monday\ntags:\n  - work\n  - standup\n---\n# Plan\nShip the release.\n")
	r := Parse(input)
	if r.Title != "Monday" {
		t.Errorf("title = %q, want %q", r.Title, "Monday")
	}
	if len(r.Tags) != 2 || r.Tags[0] != "work" || r.Tags[1] != "standup" {
		t.Errorf("tags = %v, want [work standup]", r.Tags)
	}
	if r.Body != "# Plan\nShip the release.\n" {
		t.Errorf("body = %q", r.Body)
	}
	if r.Summary != "Ship the release." {
		t.Errorf("summary = %q", r.Summary)
	}
	if r.Words != 5 {
		t.Errorf("words = %d, want 5", r.Words)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	r := Parse([]byte("# Just a heading\nSome text.\n"))
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %v", r.Frontmatter)
	}
	if r.Title != "Just a heading" {
		t.Errorf("title = %q", r.Title)
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	r := Parse([]byte("---\n: invalid: yaml: {{{\n---\nBody\n"))
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter on invalid YAML")
	}
	if !strings.Contains(r.Body, "Body") {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParse_UnclosedFrontmatter(t *testing.T) {
	r := Parse([]byte("---\ntitle: x\nno end\n"))
	if r.Frontmatter != nil || r.Title != "" {
		t.Errorf("frontmatter = %v, title = %q", r.Frontmatter, r.Title)
	}
}

func TestCollectTags(t *testing.T) {
	tests := []struct {
		name string
		fm   map[string]any
		body string
		want []string
	}{
		{"list and inline", map[string]any{"tags": []any{"alpha"}}, "text #beta and #alpha", []string{"alpha", "beta"}},
		{"comma string", map[string]any{"tags": "one, #two"}, "", []string{"one", "two"}},
		{"heading is not a tag", nil, "# Title\n#real", []string{"real"}},
		{"none", nil, "plain", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := collectTags(tt.body, tt.fm)
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("tags = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDeriveTitle(t *testing.T) {
	if got := deriveTitle(map[string]any{"title": "FM"}, "# H1\n"); got != "FM" {
		t.Errorf("title = %q, want FM", got)
	}
	if got := deriveTitle(nil, "text\n# Later\n"); got != "Later" {
		t.Errorf("title = %q, want Later", got)
	}
	if got := deriveTitle(nil, "## Sub only\n"); got != "" {
		t.Errorf("title = %q, want empty", got)
	}
}

func TestSummarize(t *testing.T) {
	if got := summarize("# H\n\n- [ ] call Bob\n"); got != "[ ] call Bob" {
		t.Errorf("summary = %q", got)
	}
	long := strings.Repeat("é", SummaryLen+20)
	got := summarize(long)
	if utf8.RuneCountInString(got) != SummaryLen {
		t.Errorf("summary runes = %d, want %d", utf8.RuneCountInString(got), SummaryLen)
	}
	if summarize("```\n") != "" {
		t.Error("fence treated as prose")
	}
}
