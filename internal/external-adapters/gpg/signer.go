package gpg

import (
	"errors"
	"fmt"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
)

// ErrNoPrivateKey is returned when the key material holds only public keys
var ErrNoPrivateKey = errors.New("no private key found in key material")

// Signer produces armored detached OpenPGP signatures
type Signer struct {
	entity *openpgp.Entity
}

// NewSigner loads the first secret key from armored or binary key material
// and decrypts it with passphrase
func NewSigner(keyMaterial, passphrase []byte) (*Signer, error) {
	entities, err := ReadKeyRing(keyMaterial)
	if err != nil {
		return nil, err
	}

	var entity *openpgp.Entity
	for _, e := range entities {
		if e.PrivateKey != nil {
			entity = e
			break
		}
	}
	if entity == nil {
		return nil, ErrNoPrivateKey
	}

	if err := decrypt(entity, passphrase); err != nil {
		return nil, err
	}
	return &Signer{entity: entity}, nil
}

func decrypt(e *openpgp.Entity, passphrase []byte) error {
	if e.PrivateKey.Encrypted {
		if err := e.PrivateKey.Decrypt(passphrase); err != nil {
			return fmt.Errorf("failed to decrypt private key: %w", err)
		}
	}
	for _, sub := range e.Subkeys {
		if sub.PrivateKey != nil && sub.PrivateKey.Encrypted {
			if err := sub.PrivateKey.Decrypt(passphrase); err != nil {
				return fmt.Errorf("failed to decrypt private subkey: %w", err)
			}
		}
	}
	return nil
}

// Fingerprint returns the fingerprint of the signing key
func (s *Signer) Fingerprint() string {
	return Fingerprint(s.entity)
}

// SignFile writes an armored detached signature of filePath to sigPath
func (s *Signer) SignFile(filePath, sigPath string) error {
	//nolint:gosec // G304: filePath is the artifact produced by the packager
	in, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer in.Close()

	//nolint:gosec // G304: sigPath is derived from the artifact path
	out, err := os.OpenFile(sigPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create signature file: %w", err)
	}

	if err := openpgp.ArmoredDetachSign(out, s.entity, in, nil); err != nil {
		_ = out.Close()
		_ = os.Remove(sigPath)
		return fmt.Errorf("failed to sign %s: %w", filePath, err)
	}
	return out.Close()
}
