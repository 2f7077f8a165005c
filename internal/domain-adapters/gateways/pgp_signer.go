package gateways

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ochairo/plugship/internal/domain/entities"
	"github.com/ochairo/plugship/internal/domain/interfaces"
	"github.com/ochairo/plugship/internal/domain/services"
	"github.com/ochairo/plugship/internal/external-adapters/environment"
	"github.com/ochairo/plugship/internal/external-adapters/gpg"
)

// ErrKeyNotInChain is returned when the signing key is absent from the certificate chain
var ErrKeyNotInChain = errors.New("signing key is not in the certificate chain")

// PGPSigner signs artifacts with an OpenPGP key and checks the result
// against the certificate chain before handing it out
type PGPSigner struct {
	readFile environment.ReadFileFunc
	logger   interfaces.Logger
}

// NewPGPSigner creates a new OpenPGP signer gateway
func NewPGPSigner(logger interfaces.Logger) *PGPSigner {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &PGPSigner{readFile: os.ReadFile, logger: logger}
}

// RequireSigningMaterial reports every unset signing secret at once
func RequireSigningMaterial(m entities.SigningMaterial) error {
	var errs []error
	if len(m.CertificateChain) == 0 {
		errs = append(errs, entities.MissingSecret(environment.EnvCertificateChain))
	}
	if len(m.PrivateKey) == 0 {
		errs = append(errs, entities.MissingSecret(environment.EnvPrivateKey))
	}
	if m.Password == "" {
		errs = append(errs, entities.MissingSecret(environment.EnvPrivateKeyPassword))
	}
	return errors.Join(errs...)
}

// Sign writes <artifact>.asc next to the artifact. Key material given as a
// file path is read here. Every failure is fatal: another attempt with the
// same material cannot succeed.
func (s *PGPSigner) Sign(ctx context.Context, artifact *entities.Artifact, material entities.SigningMaterial) (*entities.SignedArtifact, error) {
	if err := RequireSigningMaterial(material); err != nil {
		return nil, entities.Fatal(entities.StageSign, err)
	}
	if artifact == nil || artifact.Path == "" {
		return nil, entities.Fatal(entities.StageSign, fmt.Errorf("no artifact to sign"))
	}
	if err := ctx.Err(); err != nil {
		return nil, entities.Fatal(entities.StageSign, err)
	}

	material, err := environment.ResolveSigningMaterial(material, s.readFile)
	if err != nil {
		return nil, entities.Fatal(entities.StageSign, err)
	}

	signer, err := gpg.NewSigner(material.PrivateKey, []byte(material.Password))
	if err != nil {
		return nil, entities.Fatal(entities.StageSign, fmt.Errorf("failed to load private key: %w", err))
	}
	s.logger.Debug("signing artifact",
		interfaces.F("artifact", artifact.Path),
		interfaces.F("key", signer.Fingerprint()))

	sigPath := artifact.Path + services.SignatureSuffix
	if err := signer.SignFile(artifact.Path, sigPath); err != nil {
		return nil, entities.Fatal(entities.StageSign, err)
	}

	fingerprint, err := s.Verify(artifact.Path, sigPath, material.CertificateChain)
	if err != nil {
		_ = os.Remove(sigPath)
		return nil, entities.Fatal(entities.StageSign, err)
	}

	s.logger.Debug("signature verified against certificate chain",
		interfaces.F("signature", sigPath),
		interfaces.F("fingerprint", fingerprint))

	signed := *artifact
	signed.Type = entities.ArtifactTypeSigned
	return &entities.SignedArtifact{
		Artifact:          signed,
		SignaturePath:     sigPath,
		SignerFingerprint: fingerprint,
	}, nil
}

// Verify checks a detached signature against the keys in chain and returns
// the signer's fingerprint
func (s *PGPSigner) Verify(artifactPath, sigPath string, chain []byte) (string, error) {
	verifier := gpg.NewVerifier()
	if err := verifier.ImportKeyRing(chain); err != nil {
		return "", fmt.Errorf("invalid certificate chain: %w", err)
	}

	fingerprint, err := verifier.VerifySignatureFromFile(artifactPath, sigPath)
	if errors.Is(err, gpg.ErrUnknownSigner) {
		return "", fmt.Errorf("%w: %v", ErrKeyNotInChain, err)
	}
	if err != nil {
		return "", fmt.Errorf("signature verification failed: %w", err)
	}
	return fingerprint, nil
}
