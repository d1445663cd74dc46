package storage

import (
	"context"
	"testing"
)

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatal("expected error for missing kind")
	}
	if _, err := New(context.Background(), Config{Kind: "nosuch", DSN: "x"}); err == nil {
		t.Fatal("expected error for unregistered kind")
	}
}

func TestRegister_Panics(t *testing.T) {
	t.Parallel()

	expectPanic := func(name string, fn func()) {
		defer func() {
			if recover() == nil {
				t.Fatalf("%s: expected panic", name)
			}
		}()
		fn()
	}

	expectPanic("empty kind", func() { Register("", func(context.Context, Config) (Sink, error) { return nil, nil }) })
	expectPanic("nil factory", func() { Register("k", nil) })
}
