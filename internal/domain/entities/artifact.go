// Package entities defines core domain models and data structures.
package entities

// Artifact types
const (
	ArtifactTypeArchive = "archive"
	ArtifactTypeSigned  = "signed"
)

// Artifact represents a packaged plugin distribution
type Artifact struct {
	Name          string
	Version       string
	Path          string
	Type          string // "archive" or "signed"
	PluginID      string
	Checksum      string // hex SHA256 of Path
	Compatibility CompatibilityRange
}

// SignedArtifact is an artifact together with its detached signature
type SignedArtifact struct {
	Artifact          Artifact
	SignaturePath     string
	SignerFingerprint string
}
