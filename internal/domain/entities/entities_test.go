package entities

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSecretsStringRedacts(t *testing.T) {
	m := SigningMaterial{
		CertificateChain: []byte("-----BEGIN PGP PUBLIC KEY BLOCK-----"),
		PrivateKey:       []byte("secret-key-bytes"),
		Password:         "hunter2",
	}
	s := fmt.Sprintf("%v", m)
	assert.NotContains(t, s, "hunter2")
	assert.NotContains(t, s, "secret-key-bytes")
	assert.Contains(t, s, "password:set")

	c := PublishCredential{}
	assert.Equal(t, "PublishCredential{token:unset}", c.String())
	assert.NotContains(t, PublishCredential{Token: "perm:abc"}.String(), "perm:abc")
}

func TestStageErrorClassification(t *testing.T) {
	base := errors.New("boom")

	fatal := Fatal(StageSign, base)
	assert.False(t, IsRetryable(fatal))
	assert.ErrorIs(t, fatal, base)
	assert.Equal(t, "sign failed (fatal): boom", fatal.Error())

	retry := fmt.Errorf("wrapped: %w", Retryable(StagePublish, base))
	assert.True(t, IsRetryable(retry))
	assert.False(t, IsRetryable(base))
}

func TestMissingSecret(t *testing.T) {
	err := MissingSecret("PUBLISH_TOKEN")
	assert.ErrorIs(t, err, ErrMissingSecret)
	assert.Contains(t, err.Error(), "PUBLISH_TOKEN")
}

func TestReferenceDescriptor(t *testing.T) {
	d := ReferenceDescriptor()
	assert.Equal(t, "com.intellij.plugin", d.Identity.Group)
	assert.Equal(t, "1.0-SNAPSHOT", d.Identity.Version)
	assert.Equal(t, "2023.2.5", d.Platform.Version)
	assert.Equal(t, EditionCommunity, d.Platform.Edition)
	assert.Empty(t, d.Platform.RequiredPlugins)
	assert.Equal(t, "232", d.Compatibility.SinceBuild)
	assert.Equal(t, "241.*", d.Compatibility.UntilBuild)
	assert.Equal(t, "17", d.LanguageLevel)

	m := ManifestFromDescriptor(d)
	assert.Equal(t, d.Compatibility, m.Compatibility)
	assert.Equal(t, d.Identity.Group, m.Group)
}
