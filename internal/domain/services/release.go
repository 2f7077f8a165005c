package services

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ochairo/plugship/internal/domain/entities"
)

// Sidecar suffixes written next to a packaged artifact
const (
	ArchiveSuffix   = ".zip"
	SignatureSuffix = ".asc"
	ChecksumSuffix  = ".sha256"
)

// ReleaseStatus represents the readiness status of an artifact set for publishing
type ReleaseStatus string

// Release validation statuses
const (
	StatusReady            ReleaseStatus = "ready"
	StatusNoArtifacts      ReleaseStatus = "no_artifacts"
	StatusMissingSignature ReleaseStatus = "missing_signature"
	StatusMissingChecksum  ReleaseStatus = "missing_checksum"
)

// ReleaseValidation contains the validation result for a release
type ReleaseValidation struct {
	Status        ReleaseStatus
	ExpectedName  string
	ArtifactPath  string
	SignaturePath string
	ChecksumPath  string
}

// IsReady returns true if the artifact set can be published
func (rv *ReleaseValidation) IsReady() bool {
	return rv.Status == StatusReady
}

// ErrorMessage returns a human-readable error message if not ready
func (rv *ReleaseValidation) ErrorMessage() string {
	switch rv.Status {
	case StatusReady:
		return ""
	case StatusNoArtifacts:
		return fmt.Sprintf("No artifact found (expected: %s)", rv.ExpectedName)
	case StatusMissingSignature:
		return fmt.Sprintf("Artifact %s is not signed (expected: %s)",
			filepath.Base(rv.ArtifactPath), filepath.Base(rv.ArtifactPath)+SignatureSuffix)
	case StatusMissingChecksum:
		return fmt.Sprintf("Artifact %s has no checksum (expected: %s)",
			filepath.Base(rv.ArtifactPath), filepath.Base(rv.ArtifactPath)+ChecksumSuffix)
	default:
		return "Unknown status"
	}
}

// ReleaseService handles release validation logic
type ReleaseService struct{}

// NewReleaseService creates a new release service
func NewReleaseService() *ReleaseService {
	return &ReleaseService{}
}

// ArtifactBaseName is the file stem used for a descriptor's archive
func ArtifactBaseName(d *entities.Descriptor) string {
	name := d.Plugin.Name
	if name == "" {
		name = d.Plugin.ID
	}
	if name == "" {
		name = d.Identity.Group
	}
	return strings.Join(strings.Fields(name), "-")
}

// ArchiveName returns the expected archive file name: name-version.zip
func ArchiveName(d *entities.Descriptor) string {
	return fmt.Sprintf("%s-%s%s", ArtifactBaseName(d), d.Identity.Version, ArchiveSuffix)
}

// ValidateRelease checks that the archive of d and its signature and
// checksum sidecars are all among artifactPaths
func (s *ReleaseService) ValidateRelease(d *entities.Descriptor, artifactPaths []string) *ReleaseValidation {
	validation := &ReleaseValidation{ExpectedName: ArchiveName(d)}

	byName := make(map[string]string, len(artifactPaths))
	for _, p := range artifactPaths {
		byName[filepath.Base(p)] = p
	}

	archive, ok := byName[validation.ExpectedName]
	if !ok {
		validation.Status = StatusNoArtifacts
		return validation
	}
	validation.ArtifactPath = archive
	validation.SignaturePath = byName[validation.ExpectedName+SignatureSuffix]
	validation.ChecksumPath = byName[validation.ExpectedName+ChecksumSuffix]

	switch {
	case validation.SignaturePath == "":
		validation.Status = StatusMissingSignature
	case validation.ChecksumPath == "":
		validation.Status = StatusMissingChecksum
	default:
		validation.Status = StatusReady
	}
	return validation
}
