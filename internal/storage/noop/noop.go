package noop

import (
	"context"

	"github.com/bkeenke/shm-admin-2/internal/interfaces"
)

// Ensure NoOpStore implements interfaces.Storage
var _ interfaces.Storage = (*NoOpStore)(nil)

// NoOpStore is a storage implementation for disabled persistence
type NoOpStore struct{}

// NewNoOpStore creates a new no-operation store instance
func NewNoOpStore() interfaces.Storage {
	return &NoOpStore{}
}

// Read always reports nothing stored
func (n *NoOpStore) Read(_ context.Context, _ string) ([]byte, bool, error) {
	return nil, false, nil
}

// Write discards the data
func (n *NoOpStore) Write(_ context.Context, _ string, _ []byte) error {
	return nil
}

// Close does nothing
func (n *NoOpStore) Close() error {
	return nil
}
