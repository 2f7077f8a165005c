// Package gpg provides OpenPGP signing and signature verification.
package gpg

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
	pgperrors "github.com/ProtonMail/go-crypto/openpgp/errors"
)

// ErrUnknownSigner is returned when a signature was made by a key outside the keyring
var ErrUnknownSigner = errors.New("signature was not made by a key in the keyring")

const armorSignaturePrefix = "-----BEGIN PGP SIGNATURE---"

// Verifier implements detached signature verification using ProtonMail's go-crypto
// A maintained, modern fork of golang.org/x/crypto/openpgp
// This is in external-adapters to isolate the external dependency
type Verifier struct {
	keyring openpgp.EntityList
}

// NewVerifier creates a new GPG verifier
func NewVerifier() *Verifier {
	return &Verifier{
		keyring: make(openpgp.EntityList, 0),
	}
}

// ImportKeyRing imports every key from armored or binary keyring bytes
func (v *Verifier) ImportKeyRing(data []byte) error {
	entities, err := ReadKeyRing(data)
	if err != nil {
		return err
	}
	v.keyring = append(v.keyring, entities...)
	return nil
}

// VerifySignatureFromFile verifies a detached signature from a local file and
// returns the fingerprint of the key that made it
func (v *Verifier) VerifySignatureFromFile(filePath, sigPath string) (string, error) {
	if len(v.keyring) == 0 {
		return "", fmt.Errorf("no GPG keys imported, call ImportKeyRing first")
	}

	//nolint:gosec // G304: sigPath is user-provided for GPG verification
	sigData, err := os.ReadFile(sigPath)
	if err != nil {
		return "", fmt.Errorf("failed to open signature file: %w", err)
	}

	//nolint:gosec // G304: filePath is user-provided for GPG verification
	dataFile, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open data file: %w", err)
	}
	//nolint:errcheck // Defer close
	defer dataFile.Close()

	return v.VerifySignature(dataFile, sigData)
}

// VerifySignature checks an armored or binary detached signature over signed
func (v *Verifier) VerifySignature(signed io.Reader, sigData []byte) (string, error) {
	var (
		signer    *openpgp.Entity
		verifyErr error
	)
	if bytes.HasPrefix(bytes.TrimSpace(sigData), []byte(armorSignaturePrefix)) {
		signer, verifyErr = openpgp.CheckArmoredDetachedSignature(v.keyring, signed, bytes.NewReader(sigData), nil)
	} else {
		signer, verifyErr = openpgp.CheckDetachedSignature(v.keyring, signed, bytes.NewReader(sigData), nil)
	}

	if errors.Is(verifyErr, pgperrors.ErrUnknownIssuer) {
		return "", ErrUnknownSigner
	}
	if verifyErr != nil {
		return "", fmt.Errorf("signature verification failed: %w", verifyErr)
	}

	return Fingerprint(signer), nil
}

// ReadKeyRing parses armored keys, falling back to the binary format
func ReadKeyRing(data []byte) (openpgp.EntityList, error) {
	entities, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
	if err != nil {
		entities, err = openpgp.ReadKeyRing(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to read key: %w", err)
		}
	}

	if len(entities) == 0 {
		return nil, fmt.Errorf("no keys found")
	}
	return entities, nil
}

// Fingerprint returns the upper-case hex fingerprint of an entity's primary key
func Fingerprint(e *openpgp.Entity) string {
	if e == nil || e.PrimaryKey == nil {
		return ""
	}
	return fmt.Sprintf("%X", e.PrimaryKey.Fingerprint)
}
