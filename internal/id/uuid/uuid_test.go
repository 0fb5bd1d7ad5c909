// Package uuid includes tests for the ID generator wrapper.
package uuid

import (
	"strings"
	"testing"

	goUUID "github.com/google/uuid"
)

// TestGeneratorNewOrderID ensures generated IDs are unique, prefixed, and valid UUIDs.
func TestGeneratorNewOrderID(t *testing.T) {
	t.Parallel()

	gen := New()
	id1, err := gen.NewOrderID()
	if err != nil {
		t.Fatalf("NewOrderID() error = %v", err)
	}
	id2, err := gen.NewOrderID()
	if err != nil {
		t.Fatalf("NewOrderID() error = %v", err)
	}
	if id1 == id2 {
		t.Fatalf("expected unique IDs, got %s and %s", id1, id2)
	}
	for _, id := range []string{id1, id2} {
		if !strings.HasPrefix(id, OrderIDPrefix) {
			t.Fatalf("expected %s prefix, got %s", OrderIDPrefix, id)
		}
		if _, err := goUUID.Parse(strings.TrimPrefix(id, OrderIDPrefix)); err != nil {
			t.Fatalf("id %s not a valid UUID: %v", id, err)
		}
	}
}

// TestGeneratorNewObjectName ensures object names are unique valid UUIDs.
func TestGeneratorNewObjectName(t *testing.T) {
	t.Parallel()

	gen := New()
	n1, err := gen.NewObjectName()
	if err != nil {
		t.Fatalf("NewObjectName() error = %v", err)
	}
	n2, err := gen.NewObjectName()
	if err != nil {
		t.Fatalf("NewObjectName() error = %v", err)
	}
	if n1 == n2 {
		t.Fatalf("expected unique names, got %s and %s", n1, n2)
	}
	if _, err := goUUID.Parse(n1); err != nil {
		t.Fatalf("name not a valid UUID: %v", err)
	}
}
