package gateways

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ochairo/plugship/internal/domain/entities"
	"github.com/ochairo/plugship/internal/domain/services"
)

// ArtifactFinder provides utilities for locating release artifacts
type ArtifactFinder struct{}

// NewArtifactFinder creates a new artifact finder
func NewArtifactFinder() *ArtifactFinder {
	return &ArtifactFinder{}
}

// FindRelease returns the archive of d and whichever of its signature and
// checksum sidecars exist in artifactsDir
func (f *ArtifactFinder) FindRelease(artifactsDir string, d *entities.Descriptor) ([]string, error) {
	if _, err := os.Stat(artifactsDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("artifacts directory does not exist: %s", artifactsDir)
	}

	archive := filepath.Join(artifactsDir, services.ArchiveName(d))
	candidates := []string{
		archive,
		archive + services.SignatureSuffix,
		archive + services.ChecksumSuffix,
	}

	var artifacts []string
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && info.Mode().IsRegular() {
			artifacts = append(artifacts, c)
		}
	}
	return artifacts, nil
}
