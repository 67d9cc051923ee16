// Package testutil provides key, certificate and assertion fixtures for tests.
package testutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/pem"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/darmiel/clientauth/internal/core"
)

// Audience used by the fixtures, the token endpoint of a local development server.
const Audience = "https://localhost:44391/connect/token"

// RSAIdentity is a signing key with a matching self-signed certificate.
type RSAIdentity struct {
	Key *rsa.PrivateKey

	// CertificateDER is the raw certificate.
	CertificateDER []byte
}

// CertificateBase64 returns the certificate as registered for X509CertificateBase64 secrets.
func (i *RSAIdentity) CertificateBase64() string {
	return base64.StdEncoding.EncodeToString(i.CertificateDER)
}

// CertificatePEM returns the PEM encoded certificate.
func (i *RSAIdentity) CertificatePEM() string {
	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: i.CertificateDER}))
}

// PrivateKeyPEM returns the PKCS#8 PEM encoded private key.
func (i *RSAIdentity) PrivateKeyPEM(t testing.TB) []byte {
	t.Helper()
	der, err := x509.MarshalPKCS8PrivateKey(i.Key)
	if err != nil {
		t.Fatalf("marshalling private key: %v", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
}

// Secret returns a certificate secret for clientID.
func (i *RSAIdentity) Secret(clientID string) core.RegisteredSecret {
	return core.RegisteredSecret{
		ClientID: clientID,
		Type:     core.SecretTypeX509CertificateBase64,
		Value:    i.CertificateBase64(),
	}
}

var (
	identityMu sync.Mutex
	identities = map[string]*RSAIdentity{}
)

// Identity returns a cached RSA identity for name. Key generation is slow,
// so each name is generated once per test binary.
func Identity(t testing.TB, name string) *RSAIdentity {
	t.Helper()
	identityMu.Lock()
	defer identityMu.Unlock()

	if id, ok := identities[name]; ok {
		return id
	}
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating rsa key: %v", err)
	}
	template := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: name},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("creating certificate: %v", err)
	}
	id := &RSAIdentity{Key: key, CertificateDER: der}
	identities[name] = id
	return id
}

// ECKey generates a P-256 key.
func ECKey(t testing.TB) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generating ec key: %v", err)
	}
	return key
}

// Claims returns valid client assertion claims for clientID.
func Claims(clientID string) jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss": clientID,
		"sub": clientID,
		"aud": Audience,
		"iat": now.Unix(),
		"exp": now.Add(5 * time.Minute).Unix(),
		"jti": big.NewInt(now.UnixNano()).String(),
	}
}

// Sign signs claims with key using method and returns the compact token.
func Sign(t testing.TB, method jwt.SigningMethod, key any, claims jwt.MapClaims, kid string) string {
	t.Helper()
	token := jwt.NewWithClaims(method, claims)
	if kid != "" {
		token.Header["kid"] = kid
	}
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

// Bearer wraps token into a JWT bearer credential for clientID.
func Bearer(clientID, token string) core.ParsedSecret {
	return core.ParsedSecret{
		ID:         clientID,
		Type:       core.CredentialTypeJWTBearer,
		Credential: token,
	}
}
