// Package gpgtest generates throwaway OpenPGP keys for tests.
package gpgtest

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
)

// Key is an armored key pair
type Key struct {
	PrivateArmored []byte // encrypted with Passphrase
	PublicArmored  []byte
	Passphrase     string
	Fingerprint    string
}

var (
	cacheMu sync.Mutex
	cache   = map[string]*Key{}
)

// NewKey returns a key pair for name, generated once per test binary
func NewKey(t testing.TB, name string) *Key {
	t.Helper()

	cacheMu.Lock()
	defer cacheMu.Unlock()
	if k, ok := cache[name]; ok {
		return k
	}

	k, err := generate(name, "correct horse battery staple")
	if err != nil {
		t.Fatalf("failed to generate key %s: %v", name, err)
	}
	cache[name] = k
	return k
}

func generate(name, passphrase string) (*Key, error) {
	e, err := openpgp.NewEntity(name, "test", name+"@example.com", &packet.Config{RSABits: 2048})
	if err != nil {
		return nil, err
	}

	var pub bytes.Buffer
	w, err := armor.Encode(&pub, openpgp.PublicKeyType, nil)
	if err != nil {
		return nil, err
	}
	if err := e.Serialize(w); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	if err := e.PrivateKey.Encrypt([]byte(passphrase)); err != nil {
		return nil, err
	}
	for _, sub := range e.Subkeys {
		if err := sub.PrivateKey.Encrypt([]byte(passphrase)); err != nil {
			return nil, err
		}
	}

	var priv bytes.Buffer
	w, err = armor.Encode(&priv, openpgp.PrivateKeyType, nil)
	if err != nil {
		return nil, err
	}
	if err := e.SerializePrivateWithoutSigning(w, nil); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	return &Key{
		PrivateArmored: priv.Bytes(),
		PublicArmored:  pub.Bytes(),
		Passphrase:     passphrase,
		Fingerprint:    fmt.Sprintf("%X", e.PrimaryKey.Fingerprint),
	}, nil
}
