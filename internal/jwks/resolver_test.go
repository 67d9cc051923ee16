package jwks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-jose/go-jose/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darmiel/clientauth/internal/core"
	"github.com/darmiel/clientauth/internal/testutil"
)

func serveKeySet(t *testing.T, set jose.JSONWebKeySet) *httptest.Server {
	t.Helper()
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/jwks.json" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/jwk-set+json")
		_ = json.NewEncoder(w).Encode(set)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestResolver_Resolve(t *testing.T) {
	rsaID := testutil.Identity(t, "client")
	ecKey := testutil.ECKey(t)

	srv := serveKeySet(t, jose.JSONWebKeySet{Keys: []jose.JSONWebKey{
		{Key: &rsaID.Key.PublicKey, KeyID: "rsa-1", Algorithm: "RS256", Use: "sig"},
		{Key: &ecKey.PublicKey, KeyID: "ec-1", Use: "sig"},
		{Key: &ecKey.PublicKey, KeyID: "enc-1", Use: "enc"},
	}})

	r := NewResolver(Config{HTTPClient: srv.Client()}, zerolog.Nop())
	got, err := r.Resolve(context.Background(), srv.URL+"/jwks.json")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "rsa-1", got[0].KeyID)
	assert.Equal(t, "RS256", got[0].Algorithm)
	assert.Equal(t, "ec-1", got[1].KeyID)
	assert.Equal(t, core.AlgorithmFamilyEC, got[1].Algorithm)
}

func TestResolver_NoUsableKeys(t *testing.T) {
	ecKey := testutil.ECKey(t)

	tests := []struct {
		name string
		set  jose.JSONWebKeySet
	}{
		{"Empty Key Set", jose.JSONWebKeySet{Keys: []jose.JSONWebKey{}}},
		{"Encryption Keys Only", jose.JSONWebKeySet{Keys: []jose.JSONWebKey{
			{Key: &ecKey.PublicKey, KeyID: "enc-1", Use: "enc"},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serveKeySet(t, tt.set)
			r := NewResolver(Config{HTTPClient: srv.Client()}, zerolog.Nop())

			got, err := r.Resolve(context.Background(), srv.URL+"/jwks.json")
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestResolver_Errors(t *testing.T) {
	empty := serveKeySet(t, jose.JSONWebKeySet{})
	r := NewResolver(Config{HTTPClient: empty.Client()}, zerolog.Nop())

	tests := []struct {
		name      string
		reference string
		wantErr   error
	}{
		{"Not Found", empty.URL + "/missing", ErrUnexpectedStatus},
		{"Insecure Scheme", "http://client.example/jwks.json", ErrInvalidReference},
		{"Unsupported Scheme", "file:///etc/jwks.json", ErrInvalidReference},
		{"Unparsable", "://nope", ErrInvalidReference},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resolve(context.Background(), tt.reference)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestResolver_AllowInsecureHTTP(t *testing.T) {
	rsaID := testutil.Identity(t, "client")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(jose.JSONWebKeySet{Keys: []jose.JSONWebKey{
			{Key: &rsaID.Key.PublicKey, KeyID: "rsa-1"},
		}})
	}))
	defer srv.Close()

	r := NewResolver(Config{AllowInsecureHTTP: true}, zerolog.Nop())
	got, err := r.Resolve(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
