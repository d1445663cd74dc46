package scrape

import (
	"os"
	"path/filepath"
	"testing"
)

func writeRuleFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write rule file: %v", err)
	}
	return path
}

func TestLoadRuleFile(t *testing.T) {
	t.Parallel()

	path := writeRuleFile(t, `{
		"items": ".athing",
		"fields": [
			{"name": "title", "selector": ".titleline > a"},
			{"name": "score", "selector": ".score"}
		]
	}`)

	rs, err := LoadRuleFile(path)
	if err != nil {
		t.Fatalf("LoadRuleFile: %v", err)
	}
	if rs.Items != ".athing" {
		t.Fatalf("items: got %q", rs.Items)
	}
	if len(rs.Fields) != 2 || rs.Fields[0].Name != "title" || rs.Fields[1].Name != "score" {
		t.Fatalf("unexpected fields: %#v", rs.Fields)
	}
}

func TestLoadRuleFile_Errors(t *testing.T) {
	t.Parallel()

	if _, err := LoadRuleFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}

	path := writeRuleFile(t, `{"items": ".x", "fields": []}`)
	if _, err := LoadRuleFile(path); err == nil {
		t.Fatal("expected error for empty fields")
	}

	path = writeRuleFile(t, `{"fields": [{"name": "", "selector": ".a"}]}`)
	if _, err := LoadRuleFile(path); err == nil {
		t.Fatal("expected error for unnamed field")
	}

	path = writeRuleFile(t, `{"fields": [{"name": "a", "selector": " "}]}`)
	if _, err := LoadRuleFile(path); err == nil {
		t.Fatal("expected error for empty selector")
	}
}

// TestContainerSelector_Default verifies a rule set without an items
// selector falls back to plain div containers.
func TestContainerSelector_Default(t *testing.T) {
	t.Parallel()

	rs := &RuleSet{Fields: []FieldRule{{Name: "a", Selector: ".a"}}}
	if got := rs.ContainerSelector(); got != "div" {
		t.Fatalf("default container: want div got %q", got)
	}

	rs.Items = ".product"
	if got := rs.ContainerSelector(); got != ".product" {
		t.Fatalf("container: want .product got %q", got)
	}
}
