package entities

// SigningMaterial holds the cryptographic inputs used to sign an artifact.
// It lives for a single invocation and is never persisted.
type SigningMaterial struct {
	CertificateChain []byte
	PrivateKey       []byte
	Password         string
}

// String never reveals the secret values
func (m SigningMaterial) String() string {
	return "SigningMaterial{certificateChain:" + presence(len(m.CertificateChain) > 0) +
		" privateKey:" + presence(len(m.PrivateKey) > 0) +
		" password:" + presence(m.Password != "") + "}"
}

// PublishCredential authenticates against a distribution endpoint
type PublishCredential struct {
	Token string
}

// String never reveals the token
func (c PublishCredential) String() string {
	return "PublishCredential{token:" + presence(c.Token != "") + "}"
}

// ReleaseEnvironment is the secret snapshot taken once at invocation start
type ReleaseEnvironment struct {
	Signing SigningMaterial
	Publish PublishCredential
}

func presence(set bool) string {
	if set {
		return "set"
	}
	return "unset"
}
