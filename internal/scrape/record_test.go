package scrape

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

// TestRecordOrder verifies fields keep insertion order and that re-setting a
// key updates the value without moving the field.
func TestRecordOrder(t *testing.T) {
	t.Parallel()

	rec := NewRecord()
	rec.Set("b", "1")
	rec.Set("a", "2")
	rec.Set("c", []string{"x", "y"})
	rec.Set("b", "replaced")

	want := []string{"b", "a", "c"}
	if got := rec.Keys(); !reflect.DeepEqual(got, want) {
		t.Fatalf("keys: want %v got %v", want, got)
	}
	if v, _ := rec.Get("b"); v != "replaced" {
		t.Fatalf("b: want %q got %#v", "replaced", v)
	}
	if rec.Len() != 3 {
		t.Fatalf("len: want 3 got %d", rec.Len())
	}
}

// TestRecordMarshalJSON verifies JSON output preserves field order and does
// not escape HTML or non-ASCII characters.
func TestRecordMarshalJSON(t *testing.T) {
	t.Parallel()

	rec := NewRecord()
	rec.Set("title", "Привет & <мир>")
	rec.Set("links", []string{"/a", "/b"})

	b, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got := string(b)
	want := `{"title":"Привет & <мир>","links":["/a","/b"]}`
	if got != want {
		t.Fatalf("json: want %s got %s", want, got)
	}
	if strings.Contains(got, `\u`) {
		t.Fatalf("json contains escapes: %s", got)
	}
}

// TestResultSetColumns verifies the column union is ordered by first
// appearance across records.
func TestResultSetColumns(t *testing.T) {
	t.Parallel()

	first := NewRecord()
	first.Set("title", "a")
	first.Set("price", "1")

	second := NewRecord()
	second.Set("title", "b")
	second.Set("author", "x")

	rs := ResultSet{first, second}
	want := []string{"title", "price", "author"}
	if got := rs.Columns(); !reflect.DeepEqual(got, want) {
		t.Fatalf("columns: want %v got %v", want, got)
	}

	if got := (ResultSet{}).Columns(); len(got) != 0 {
		t.Fatalf("empty set columns: want none got %v", got)
	}
}
