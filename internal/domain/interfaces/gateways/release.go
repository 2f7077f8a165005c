// Package gateways defines interfaces for external service adapters.
package gateways

import (
	"context"

	"github.com/ochairo/plugship/internal/domain/entities"
)

// PackageRequest carries everything needed to assemble a plugin archive
type PackageRequest struct {
	Descriptor  *entities.Descriptor
	PluginXML   []byte
	JarManifest []byte
	OutputDir   string
}

// Packager assembles the distributable plugin archive
type Packager interface {
	PackageArtifact(ctx context.Context, req PackageRequest) (*entities.Artifact, error)
}

// Signer produces a signed artifact.
// Missing material must fail with entities.ErrMissingSecret.
type Signer interface {
	Sign(ctx context.Context, artifact *entities.Artifact, material entities.SigningMaterial) (*entities.SignedArtifact, error)
}

// Publisher submits a signed artifact to a distribution endpoint.
// Implementations make exactly one attempt per call and classify failures
// with entities.StageError so callers can decide on retries.
type Publisher interface {
	Publish(ctx context.Context, signed *entities.SignedArtifact, credential entities.PublishCredential) (*entities.PublishResult, error)
}
