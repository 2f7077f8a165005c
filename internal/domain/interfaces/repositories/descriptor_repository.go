// Package repositories defines interfaces for data access layers.
package repositories

import (
	"context"

	"github.com/ochairo/plugship/internal/domain/entities"
)

// DescriptorRepository defines the interface for loading release descriptors
type DescriptorRepository interface {
	// Load reads the descriptor at path, or discovers one when path is a directory
	Load(ctx context.Context, path string) (*entities.Descriptor, error)
}
