package yaml

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ochairo/plugship/internal/domain/entities"
)

// DescriptorFileNames are probed in order when a directory is given
var DescriptorFileNames = []string{
	"plugship.yml",
	"plugship.yaml",
	"plugship.jsonc",
	"plugship.json",
}

// DescriptorRepository implements repositories.DescriptorRepository using files
type DescriptorRepository struct {
	parser *DescriptorParser
}

// NewDescriptorRepository creates a new file-based descriptor repository
func NewDescriptorRepository() *DescriptorRepository {
	return &DescriptorRepository{
		parser: NewDescriptorParser(),
	}
}

// Load parses the descriptor at path. A directory is searched for one of
// DescriptorFileNames.
func (r *DescriptorRepository) Load(_ context.Context, path string) (*entities.Descriptor, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("descriptor not found: %s", path)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if !info.IsDir() {
		return r.parser.ParseFile(path)
	}

	found, err := Find(path)
	if err != nil {
		return nil, err
	}
	return r.parser.ParseFile(found)
}

// Find returns the first descriptor file present in dir
func Find(dir string) (string, error) {
	for _, name := range DescriptorFileNames {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no descriptor (%v) found in %s", DescriptorFileNames, dir)
}
