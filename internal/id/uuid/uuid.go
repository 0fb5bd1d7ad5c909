// Package uuid provides ID generation helpers.
package uuid

import (
	"fmt"

	"github.com/google/uuid"
)

// OrderIDPrefix precedes every generated order identifier.
const OrderIDPrefix = "ORD-"

// Generator creates order IDs and object names from UUIDs.
type Generator struct{}

// New creates a new Generator.
func New() *Generator {
	return &Generator{}
}

// NewOrderID returns ORD- followed by a UUID7 string, so IDs sort roughly
// by creation time.
func (Generator) NewOrderID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid7: %w", err)
	}
	return OrderIDPrefix + id.String(), nil
}

// NewObjectName returns a UUIDv4 string for storage key uniqueness.
func (Generator) NewObjectName() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate uuid4: %w", err)
	}
	return id.String(), nil
}
