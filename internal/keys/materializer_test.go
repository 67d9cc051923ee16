package keys

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darmiel/clientauth/internal/core"
	"github.com/darmiel/clientauth/internal/testutil"
)

type stubResolver struct {
	keys []core.VerificationKey
	err  error
	refs []string
}

func (s *stubResolver) Resolve(_ context.Context, reference string) ([]core.VerificationKey, error) {
	s.refs = append(s.refs, reference)
	return s.keys, s.err
}

func TestMaterializer_Materialize(t *testing.T) {
	id := testutil.Identity(t, "client")
	_, edPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	edJWK, err := jose.JSONWebKey{Key: edPriv, KeyID: "ed-1", Algorithm: "EdDSA"}.MarshalJSON()
	require.NoError(t, err)

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name     string
		secret   core.RegisteredSecret
		wantKeys int
		wantAlg  string
	}{
		{
			name:     "Certificate Base64",
			secret:   core.RegisteredSecret{Type: core.SecretTypeX509CertificateBase64, Value: id.CertificateBase64()},
			wantKeys: 1,
			wantAlg:  core.AlgorithmFamilyRSA,
		},
		{
			name:     "Certificate PEM",
			secret:   core.RegisteredSecret{Type: core.SecretTypeX509CertificateBase64, Value: id.CertificatePEM()},
			wantKeys: 1,
			wantAlg:  core.AlgorithmFamilyRSA,
		},
		{
			name:     "Malformed Certificate",
			secret:   core.RegisteredSecret{Type: core.SecretTypeX509CertificateBase64, Value: "%%%not-base64%%%"},
			wantKeys: 0,
		},
		{
			name:     "Shared Secret",
			secret:   core.RegisteredSecret{Type: core.SecretTypeSharedSecret, Value: "secret"},
			wantKeys: 1,
			wantAlg:  core.AlgorithmFamilyHMAC,
		},
		{
			name:     "Empty Shared Secret",
			secret:   core.RegisteredSecret{Type: core.SecretTypeSharedSecret},
			wantKeys: 0,
		},
		{
			name:     "Private JWK Reduced To Public",
			secret:   core.RegisteredSecret{Type: core.SecretTypeJSONWebKey, Value: string(edJWK)},
			wantKeys: 1,
			wantAlg:  "EdDSA",
		},
		{
			name:     "Symmetric JWK",
			secret:   core.RegisteredSecret{Type: core.SecretTypeJSONWebKey, Value: `{"kty":"oct","kid":"hs-1","alg":"HS256","k":"c2VjcmV0LWtleS1mb3ItaG1hYy10ZXN0cw"}`},
			wantKeys: 1,
			wantAlg:  "HS256",
		},
		{
			name:     "Symmetric JWK With Asymmetric Algorithm",
			secret:   core.RegisteredSecret{Type: core.SecretTypeJSONWebKey, Value: `{"kty":"oct","alg":"RS256","k":"c2VjcmV0LWtleS1mb3ItaG1hYy10ZXN0cw"}`},
			wantKeys: 0,
		},
		{
			name:     "Malformed JWK",
			secret:   core.RegisteredSecret{Type: core.SecretTypeJSONWebKey, Value: `{"kty":"nope"}`},
			wantKeys: 0,
		},
		{
			name:     "Unknown Type",
			secret:   core.RegisteredSecret{Type: "X509Thumbprint", Value: "ABCDEF"},
			wantKeys: 0,
		},
		{
			name: "Expired Secret",
			secret: core.RegisteredSecret{
				Type: core.SecretTypeX509CertificateBase64, Value: id.CertificateBase64(), Expiration: &past,
			},
			wantKeys: 0,
		},
		{
			name: "Not Yet Expired Secret",
			secret: core.RegisteredSecret{
				Type: core.SecretTypeX509CertificateBase64, Value: id.CertificateBase64(), Expiration: &future,
			},
			wantKeys: 1,
			wantAlg:  core.AlgorithmFamilyRSA,
		},
	}

	m := NewMaterializer(zerolog.Nop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Materialize(context.Background(), tt.secret)
			require.NoError(t, err)
			require.Len(t, got, tt.wantKeys)
			if tt.wantKeys > 0 {
				assert.Equal(t, tt.wantAlg, got[0].Algorithm)
				assert.NotNil(t, got[0].Key)
			}
		})
	}
}

func TestMaterializer_CertificateKey(t *testing.T) {
	id := testutil.Identity(t, "client")

	key, err := FromCertificate(id.CertificateBase64())
	require.NoError(t, err)

	pub, ok := key.Key.(*rsa.PublicKey)
	require.True(t, ok, "expected *rsa.PublicKey, got %T", key.Key)
	assert.True(t, pub.Equal(&id.Key.PublicKey))
	assert.Len(t, key.KeyID, 27) // base64url of a SHA-1 digest
}

func TestMaterializer_JWKSReference(t *testing.T) {
	secret := core.RegisteredSecret{
		ClientID: "client",
		Type:     core.SecretTypeJWKSReference,
		Value:    "https://client.example/jwks.json",
	}

	t.Run("No Resolver", func(t *testing.T) {
		m := NewMaterializer(zerolog.Nop())
		_, err := m.Materialize(context.Background(), secret)
		assert.ErrorIs(t, err, ErrNoResolver)
	})

	t.Run("Resolved", func(t *testing.T) {
		resolver := &stubResolver{keys: []core.VerificationKey{{KeyID: "k1", Algorithm: "RS256", Key: "pub"}}}
		m := NewMaterializer(zerolog.Nop(), WithResolver(resolver))
		got, err := m.Materialize(context.Background(), secret)
		require.NoError(t, err)
		assert.Equal(t, resolver.keys, got)
		assert.Equal(t, []string{secret.Value}, resolver.refs)
	})

	t.Run("Resolver Error Aborts MaterializeAll", func(t *testing.T) {
		id := testutil.Identity(t, "client")
		resolver := &stubResolver{err: errors.New("connection refused")}
		m := NewMaterializer(zerolog.Nop(), WithResolver(resolver))
		_, err := m.MaterializeAll(context.Background(), []core.RegisteredSecret{id.Secret("client"), secret})
		assert.ErrorContains(t, err, "connection refused")
	})
}

func TestMaterializer_MaterializeAll(t *testing.T) {
	id := testutil.Identity(t, "client")
	rotated := testutil.Identity(t, "rotated")

	m := NewMaterializer(zerolog.Nop(), WithClock(func() time.Time { return time.Now() }))
	got, err := m.MaterializeAll(context.Background(), []core.RegisteredSecret{
		id.Secret("client"),
		{Type: core.SecretTypeX509CertificateBase64, Value: "broken"},
		rotated.Secret("client"),
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.NotEqual(t, got[0].KeyID, got[1].KeyID)

	none, err := m.MaterializeAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFromJSONWebKey_Symmetric(t *testing.T) {
	key, err := FromJSONWebKey([]byte(`{"kty":"oct","kid":"hs-1","k":"c2VjcmV0LWtleS1mb3ItaG1hYy10ZXN0cw"}`))
	require.NoError(t, err)
	assert.Equal(t, "hs-1", key.KeyID)
	assert.Equal(t, core.AlgorithmFamilyHMAC, key.Algorithm)
	assert.Equal(t, []byte("secret-key-for-hmac-tests"), key.Key)

	_, err = FromJOSE(jose.JSONWebKey{Key: []byte{}})
	assert.Error(t, err)
}

func TestVerificationKey_Accepts(t *testing.T) {
	tests := []struct {
		keyAlg string
		alg    string
		want   bool
	}{
		{core.AlgorithmFamilyRSA, "RS256", true},
		{core.AlgorithmFamilyRSA, "PS512", true},
		{core.AlgorithmFamilyRSA, "ES256", false},
		{"RS256", "RS256", true},
		{"RS256", "RS384", false},
		{core.AlgorithmFamilyEdDSA, "EdDSA", true},
		{core.AlgorithmFamilyHMAC, "HS512", true},
		{core.AlgorithmFamilyHMAC, "none", false},
		{"", "RS256", false},
	}
	for _, tt := range tests {
		t.Run(tt.keyAlg+"/"+tt.alg, func(t *testing.T) {
			assert.Equal(t, tt.want, core.VerificationKey{Algorithm: tt.keyAlg}.Accepts(tt.alg))
		})
	}
}
