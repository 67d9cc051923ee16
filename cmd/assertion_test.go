package cmd

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darmiel/clientauth/internal/assertion"
	"github.com/darmiel/clientauth/internal/config"
	"github.com/darmiel/clientauth/internal/core"
	"github.com/darmiel/clientauth/internal/keys"
	"github.com/darmiel/clientauth/internal/registry"
	"github.com/darmiel/clientauth/internal/testutil"
)

func localValidator(t *testing.T, id *testutil.RSAIdentity) (core.ClientRegistry, *assertion.Validator) {
	t.Helper()
	reg, err := registry.NewStatic([]config.ClientConfig{{
		ClientID: "api1jwtclient",
		Secrets: []config.SecretConfig{
			{Type: core.SecretTypeX509CertificateBase64, Value: id.CertificateBase64()},
		},
	}})
	require.NoError(t, err)
	validator, err := assertion.NewValidator(testutil.Audience, keys.NewMaterializer(zerolog.Nop()), zerolog.Nop())
	require.NoError(t, err)
	return reg, validator
}

func TestMintAndVerify(t *testing.T) {
	id := testutil.Identity(t, "api1jwtclient")
	certKey, err := keys.FromCertificate(id.CertificatePEM())
	require.NoError(t, err)

	token, err := mintAssertion(mintOptions{
		KeyPEM:    id.PrivateKeyPEM(t),
		Algorithm: "RS256",
		ClientID:  "api1jwtclient",
		Audience:  testutil.Audience,
		KeyID:     certKey.KeyID,
		TTL:       time.Minute,
	}, time.Now())
	require.NoError(t, err)

	parsed, _, err := jwt.NewParser().ParseUnverified(token, &jwt.RegisteredClaims{})
	require.NoError(t, err)
	assert.Equal(t, certKey.KeyID, parsed.Header["kid"])
	claims := parsed.Claims.(*jwt.RegisteredClaims)
	assert.Equal(t, "api1jwtclient", claims.Issuer)
	assert.Equal(t, "api1jwtclient", claims.Subject)
	assert.NotEmpty(t, claims.ID)

	reg, validator := localValidator(t, id)

	outcome, err := verifyAssertion(context.Background(), reg, validator, "", token)
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Equal(t, certKey.KeyID, outcome.Assertion.KeyID)

	// minted for another audience
	other, err := mintAssertion(mintOptions{
		KeyPEM:    id.PrivateKeyPEM(t),
		Algorithm: "PS256",
		ClientID:  "api1jwtclient",
		Audience:  "https://other.example/token",
		TTL:       time.Minute,
	}, time.Now())
	require.NoError(t, err)
	outcome, err = verifyAssertion(context.Background(), reg, validator, "api1jwtclient", other)
	require.NoError(t, err)
	assert.False(t, outcome.Success)
	assert.Equal(t, core.ReasonSignatureOrClaimInvalid, outcome.Reason)

	_, err = verifyAssertion(context.Background(), reg, validator, "", "garbage")
	assert.Error(t, err)
}

func TestParseSigningKey(t *testing.T) {
	ecKey := testutil.ECKey(t)
	ecDER, err := x509.MarshalPKCS8PrivateKey(ecKey)
	require.NoError(t, err)
	ecPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: ecDER})

	_, edKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	edDER, err := x509.MarshalPKCS8PrivateKey(edKey)
	require.NoError(t, err)
	edPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: edDER})

	key, err := parseSigningKey("ES256", ecPEM)
	require.NoError(t, err)
	assert.IsType(t, &ecdsa.PrivateKey{}, key)

	key, err = parseSigningKey("EdDSA", edPEM)
	require.NoError(t, err)
	assert.IsType(t, ed25519.PrivateKey{}, key)

	key, err = parseSigningKey("HS256", []byte("  shared-secret\n"))
	require.NoError(t, err)
	assert.Equal(t, []byte("shared-secret"), key)

	_, err = parseSigningKey("RS256", ecPEM)
	assert.Error(t, err)
	_, err = parseSigningKey("HS256", []byte("  "))
	assert.Error(t, err)
	_, err = parseSigningKey("none", ecPEM)
	assert.Error(t, err)
}

func TestMintAssertion_Errors(t *testing.T) {
	id := testutil.Identity(t, "api1jwtclient")
	base := mintOptions{
		KeyPEM:    id.PrivateKeyPEM(t),
		Algorithm: "RS256",
		ClientID:  "api1jwtclient",
		Audience:  testutil.Audience,
		TTL:       time.Minute,
	}

	tests := map[string]func(o *mintOptions){
		"Missing Client":    func(o *mintOptions) { o.ClientID = "" },
		"Missing Audience":  func(o *mintOptions) { o.Audience = "" },
		"Zero TTL":          func(o *mintOptions) { o.TTL = 0 },
		"None Algorithm":    func(o *mintOptions) { o.Algorithm = "none" },
		"Unknown Algorithm": func(o *mintOptions) { o.Algorithm = "XY256" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			opts := base
			mutate(&opts)
			_, err := mintAssertion(opts, time.Now())
			assert.Error(t, err)
		})
	}
}

func TestReadToken(t *testing.T) {
	token, err := readToken(strings.NewReader(""), []string{" a.b.c "})
	require.NoError(t, err)
	assert.Equal(t, "a.b.c", token)

	token, err = readToken(strings.NewReader("x.y.z\n"), nil)
	require.NoError(t, err)
	assert.Equal(t, "x.y.z", token)
}
