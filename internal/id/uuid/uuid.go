// Package uuid provides session ID generation.
package uuid

import (
	guuid "github.com/google/uuid"
)

// Generator creates session ID strings. Sessions use UUID v7 so IDs sort in
// creation order, which keeps crawl_metadata rows browsable by session.
type Generator struct{}

// NewGenerator creates a new Generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// NewSessionID returns a UUID v7 string, falling back to v4 if the system
// clock is unusable.
func (Generator) NewSessionID() string {
	id, err := guuid.NewV7()
	if err != nil {
		return guuid.NewString()
	}
	return id.String()
}
