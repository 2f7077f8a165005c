package gateways

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ochairo/plugship/internal/domain/entities"
	"github.com/ochairo/plugship/internal/external-adapters/console"
	"github.com/ochairo/plugship/internal/external-adapters/gpg/gpgtest"
)

func writeArtifact(t *testing.T) *entities.Artifact {
	t.Helper()
	path := filepath.Join(t.TempDir(), "demo-1.0.zip")
	require.NoError(t, os.WriteFile(path, []byte("archive bytes"), 0600))
	return &entities.Artifact{Name: "demo", Version: "1.0", Path: path, Type: entities.ArtifactTypeArchive}
}

func TestPGPSigner_Sign(t *testing.T) {
	key := gpgtest.NewKey(t, "release")
	artifact := writeArtifact(t)

	signed, err := NewPGPSigner(nil).Sign(context.Background(), artifact, entities.SigningMaterial{
		CertificateChain: key.PublicArmored,
		PrivateKey:       key.PrivateArmored,
		Password:         key.Passphrase,
	})
	require.NoError(t, err)

	assert.Equal(t, artifact.Path+".asc", signed.SignaturePath)
	assert.Equal(t, key.Fingerprint, signed.SignerFingerprint)
	assert.Equal(t, entities.ArtifactTypeSigned, signed.Artifact.Type)
	assert.Equal(t, entities.ArtifactTypeArchive, artifact.Type, "input artifact must not be mutated")

	sig, err := os.ReadFile(signed.SignaturePath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(sig), "-----BEGIN PGP SIGNATURE-----"))
}

func TestPGPSigner_MissingSecretsReportedIndependently(t *testing.T) {
	key := gpgtest.NewKey(t, "release")

	tests := []struct {
		name     string
		material entities.SigningMaterial
		missing  []string
	}{
		{
			name:     "all missing",
			material: entities.SigningMaterial{},
			missing:  []string{"CERTIFICATE_CHAIN", "PRIVATE_KEY", "PRIVATE_KEY_PASSWORD"},
		},
		{
			name:     "chain missing",
			material: entities.SigningMaterial{PrivateKey: key.PrivateArmored, Password: key.Passphrase},
			missing:  []string{"CERTIFICATE_CHAIN"},
		},
		{
			name:     "password missing",
			material: entities.SigningMaterial{CertificateChain: key.PublicArmored, PrivateKey: key.PrivateArmored},
			missing:  []string{"PRIVATE_KEY_PASSWORD"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			artifact := writeArtifact(t)
			_, err := NewPGPSigner(nil).Sign(context.Background(), artifact, tt.material)
			require.Error(t, err)
			assert.ErrorIs(t, err, entities.ErrMissingSecret)
			assert.False(t, entities.IsRetryable(err))

			for _, name := range []string{"CERTIFICATE_CHAIN", "PRIVATE_KEY", "PRIVATE_KEY_PASSWORD"} {
				want := false
				for _, m := range tt.missing {
					want = want || m == name
				}
				assert.Equal(t, want, strings.Contains(err.Error(), name+" is not set"), "variable %s", name)
			}

			_, statErr := os.Stat(artifact.Path + ".asc")
			assert.True(t, os.IsNotExist(statErr), "no signature may be written")
		})
	}
}

func TestPGPSigner_BackendFailuresAreFatal(t *testing.T) {
	key := gpgtest.NewKey(t, "release")
	other := gpgtest.NewKey(t, "other")

	tests := []struct {
		name     string
		material entities.SigningMaterial
		target   error
	}{
		{
			name: "wrong password",
			material: entities.SigningMaterial{
				CertificateChain: key.PublicArmored, PrivateKey: key.PrivateArmored, Password: "wrong",
			},
		},
		{
			name: "key not in chain",
			material: entities.SigningMaterial{
				CertificateChain: other.PublicArmored, PrivateKey: key.PrivateArmored, Password: key.Passphrase,
			},
			target: ErrKeyNotInChain,
		},
		{
			name: "garbage key",
			material: entities.SigningMaterial{
				CertificateChain: key.PublicArmored, PrivateKey: []byte("not a key"), Password: key.Passphrase,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			artifact := writeArtifact(t)
			_, err := NewPGPSigner(nil).Sign(context.Background(), artifact, tt.material)
			require.Error(t, err)

			var stageErr *entities.StageError
			require.True(t, errors.As(err, &stageErr))
			assert.Equal(t, entities.StageSign, stageErr.Stage)
			assert.Equal(t, entities.FailureFatal, stageErr.Kind)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}

			_, statErr := os.Stat(artifact.Path + ".asc")
			assert.True(t, os.IsNotExist(statErr), "failed signature must be removed")
		})
	}
}

func TestPGPSigner_Verify(t *testing.T) {
	key := gpgtest.NewKey(t, "release")
	artifact := writeArtifact(t)
	signer := NewPGPSigner(nil)

	signed, err := signer.Sign(context.Background(), artifact, entities.SigningMaterial{
		CertificateChain: key.PublicArmored,
		PrivateKey:       key.PrivateArmored,
		Password:         key.Passphrase,
	})
	require.NoError(t, err)

	fp, err := signer.Verify(artifact.Path, signed.SignaturePath, key.PublicArmored)
	require.NoError(t, err)
	assert.Equal(t, key.Fingerprint, fp)

	require.NoError(t, os.WriteFile(artifact.Path, []byte("tampered"), 0600))
	_, err = signer.Verify(artifact.Path, signed.SignaturePath, key.PublicArmored)
	assert.Error(t, err)
}

func TestPGPSigner_Sign_KeyMaterialFromFiles(t *testing.T) {
	key := gpgtest.NewKey(t, "release")
	dir := t.TempDir()
	chainPath := filepath.Join(dir, "chain.asc")
	keyPath := filepath.Join(dir, "private.asc")
	require.NoError(t, os.WriteFile(chainPath, key.PublicArmored, 0600))
	require.NoError(t, os.WriteFile(keyPath, key.PrivateArmored, 0600))

	var logs bytes.Buffer
	signed, err := NewPGPSigner(console.NewLogger(&logs, true)).Sign(context.Background(), writeArtifact(t), entities.SigningMaterial{
		CertificateChain: []byte(chainPath),
		PrivateKey:       []byte(keyPath),
		Password:         key.Passphrase,
	})
	require.NoError(t, err)
	assert.Equal(t, key.Fingerprint, signed.SignerFingerprint)
	assert.Contains(t, logs.String(), "signing artifact")
	assert.Contains(t, logs.String(), key.Fingerprint)
}

func TestPGPSigner_Sign_UnreadableMaterialFailsAtSign(t *testing.T) {
	key := gpgtest.NewKey(t, "release")
	artifact := writeArtifact(t)

	_, err := NewPGPSigner(nil).Sign(context.Background(), artifact, entities.SigningMaterial{
		CertificateChain: []byte("dummy-chain"),
		PrivateKey:       key.PrivateArmored,
		Password:         key.Passphrase,
	})
	require.Error(t, err)

	var stageErr *entities.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, entities.StageSign, stageErr.Stage)
	assert.False(t, entities.IsRetryable(err))
	assert.Contains(t, err.Error(), "CERTIFICATE_CHAIN")
	assert.NoFileExists(t, artifact.Path+".asc")
}
