// Package environment snapshots release secrets from the process environment.
package environment

import (
	"fmt"
	"os"
	"strings"

	"github.com/ochairo/plugship/internal/domain/entities"
)

// Environment variables holding release secrets
const (
	EnvCertificateChain   = "CERTIFICATE_CHAIN"
	EnvPrivateKey         = "PRIVATE_KEY"
	EnvPrivateKeyPassword = "PRIVATE_KEY_PASSWORD"
	EnvPublishToken       = "PUBLISH_TOKEN"
)

const inlineMarker = "-----BEGIN"

// LookupFunc has the shape of os.LookupEnv
type LookupFunc func(key string) (string, bool)

// ReadFileFunc has the shape of os.ReadFile
type ReadFileFunc func(path string) ([]byte, error)

// Loader builds a ReleaseEnvironment from environment variables
type Loader struct {
	lookup LookupFunc
}

// NewLoader creates a loader over the given lookup
func NewLoader(lookup LookupFunc) *Loader {
	return &Loader{lookup: lookup}
}

// NewOSLoader reads the real process environment
func NewOSLoader() *Loader {
	return NewLoader(os.LookupEnv)
}

// Load takes the snapshot. Values are kept as given: unset variables stay
// empty and key material paths are not opened here. Whether a secret is
// required, and reading it, belongs to the stage that uses it.
func (l *Loader) Load() entities.ReleaseEnvironment {
	return entities.ReleaseEnvironment{
		Signing: entities.SigningMaterial{
			CertificateChain: l.raw(EnvCertificateChain),
			PrivateKey:       l.raw(EnvPrivateKey),
			Password:         l.value(EnvPrivateKeyPassword),
		},
		Publish: entities.PublishCredential{
			Token: strings.TrimSpace(l.value(EnvPublishToken)),
		},
	}
}

func (l *Loader) value(key string) string {
	v, _ := l.lookup(key)
	return v
}

func (l *Loader) raw(key string) []byte {
	v := strings.TrimSpace(l.value(key))
	if v == "" {
		return nil
	}
	return []byte(v)
}

// ResolveSigningMaterial replaces path values of the certificate chain and
// private key with the contents of the files they name
func ResolveSigningMaterial(m entities.SigningMaterial, readFile ReadFileFunc) (entities.SigningMaterial, error) {
	chain, err := ResolveMaterial(EnvCertificateChain, m.CertificateChain, readFile)
	if err != nil {
		return entities.SigningMaterial{}, err
	}
	key, err := ResolveMaterial(EnvPrivateKey, m.PrivateKey, readFile)
	if err != nil {
		return entities.SigningMaterial{}, err
	}
	m.CertificateChain = chain
	m.PrivateKey = key
	return m, nil
}

// ResolveMaterial returns inline key material (starting with "-----BEGIN")
// as is and otherwise reads the file the value points to. key names the
// variable in errors.
func ResolveMaterial(key string, value []byte, readFile ReadFileFunc) ([]byte, error) {
	v := strings.TrimSpace(string(value))
	if v == "" || strings.HasPrefix(v, inlineMarker) {
		return value, nil
	}

	data, err := readFile(v)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read key material: %w", key, err)
	}
	return data, nil
}
