package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darmiel/clientauth/internal/api/middleware"
	"github.com/darmiel/clientauth/internal/api/presenter"
	"github.com/darmiel/clientauth/internal/assertion"
	"github.com/darmiel/clientauth/internal/audit"
	"github.com/darmiel/clientauth/internal/config"
	"github.com/darmiel/clientauth/internal/core"
	"github.com/darmiel/clientauth/internal/keys"
	"github.com/darmiel/clientauth/internal/registry"
	"github.com/darmiel/clientauth/internal/testutil"
)

var adminKey = []byte("0123456789abcdef0123456789abcdef")

type failingRegistry struct{}

func (failingRegistry) FindSecrets(context.Context, string) ([]core.RegisteredSecret, error) {
	return nil, errors.New("connection refused")
}

type fixture struct {
	handler http.Handler
	auditor *audit.InMemoryAuditor
	id      *testutil.RSAIdentity
}

func newFixture(t *testing.T, reg core.ClientRegistry) *fixture {
	t.Helper()
	id := testutil.Identity(t, "client")
	if reg == nil {
		static, err := registry.NewStatic([]config.ClientConfig{{
			ClientID: "client",
			Name:     "Test Client",
			Secrets: []config.SecretConfig{
				{Type: core.SecretTypeX509CertificateBase64, Value: id.CertificateBase64()},
			},
		}})
		require.NoError(t, err)
		reg = static
	}
	validator, err := assertion.NewValidator(testutil.Audience, keys.NewMaterializer(zerolog.Nop()), zerolog.Nop())
	require.NoError(t, err)
	auditor := audit.NewInMemoryAuditor()
	srv := NewServer(reg, validator, auditor, nil)
	return &fixture{handler: srv.Routes(adminKey), auditor: auditor, id: id}
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func authenticateRequest(form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, AuthenticateRoute, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func assertionForm(clientID, token string) url.Values {
	form := url.Values{}
	if clientID != "" {
		form.Set("client_id", clientID)
	}
	form.Set("client_assertion_type", core.ClientAssertionTypeJWTBearer)
	form.Set("client_assertion", token)
	return form
}

func decodeError(t *testing.T, body io.Reader) presenter.ErrorResponse {
	t.Helper()
	var resp presenter.ErrorResponse
	require.NoError(t, json.NewDecoder(body).Decode(&resp))
	return resp
}

func TestHandleAuthenticate(t *testing.T) {
	f := newFixture(t, nil)
	valid := testutil.Sign(t, jwt.SigningMethodRS256, f.id.Key, testutil.Claims("client"), "")

	mismatch := testutil.Claims("client")
	mismatch["sub"] = "someone-else"
	mismatched := testutil.Sign(t, jwt.SigningMethodRS256, f.id.Key, mismatch, "")

	wrongAud := testutil.Claims("client")
	wrongAud["aud"] = "https://other.example/token"
	wrongAudience := testutil.Sign(t, jwt.SigningMethodRS256, f.id.Key, wrongAud, "")

	tests := []struct {
		name       string
		form       url.Values
		wantStatus int
		wantError  string
	}{
		{"Valid Assertion", assertionForm("client", valid), http.StatusOK, ""},
		{"Client ID From Subject", assertionForm("", valid), http.StatusOK, ""},
		{"Subject Mismatch", assertionForm("client", mismatched), http.StatusUnauthorized, presenter.ErrorInvalidClient},
		{"Wrong Audience", assertionForm("client", wrongAudience), http.StatusUnauthorized, presenter.ErrorInvalidClient},
		{"Garbage Token", assertionForm("client", "not-a-jwt"), http.StatusUnauthorized, presenter.ErrorInvalidClient},
		{"Unknown Client", assertionForm("unknown", valid), http.StatusUnauthorized, presenter.ErrorInvalidClient},
		{"Shared Secret", url.Values{"client_id": {"client"}, "client_secret": {"secret"}}, http.StatusUnauthorized, presenter.ErrorInvalidClient},
		{"No Credential", url.Values{}, http.StatusUnauthorized, presenter.ErrorInvalidClient},
		{"Client ID Too Long", assertionForm(strings.Repeat("a", assertion.MaxClientIDLength+1), valid), http.StatusBadRequest, presenter.ErrorInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(authenticateRequest(tt.form))
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.NotEmpty(t, rec.Header().Get(middleware.CorrelationIDHeader))

			if tt.wantError != "" {
				resp := decodeError(t, rec.Body)
				assert.Equal(t, tt.wantError, resp.Error)
				assert.Equal(t, rec.Header().Get(middleware.CorrelationIDHeader), resp.CorrelationID)
				return
			}
			var body map[string]any
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, true, body["authenticated"])
			assert.Equal(t, "client", body["client_id"])
		})
	}
}

func TestHandleAuthenticate_AuditsReason(t *testing.T) {
	f := newFixture(t, nil)
	claims := testutil.Claims("client")
	claims["sub"] = "someone-else"
	token := testutil.Sign(t, jwt.SigningMethodRS256, f.id.Key, claims, "")

	req := authenticateRequest(assertionForm("client", token))
	req.Header.Set(middleware.CorrelationIDHeader, "corr-123")
	rec := f.do(req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "corr-123", rec.Header().Get(middleware.CorrelationIDHeader))
	assert.NotContains(t, rec.Body.String(), "subject")

	entries, err := f.auditor.GetRecent(1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "corr-123", entries[0].ID)
	assert.Equal(t, core.ReasonSubjectIssuerMismatch, entries[0].Reason)
}

func TestHandleAuthenticate_RegistryFailure(t *testing.T) {
	f := newFixture(t, failingRegistry{})
	rec := f.do(authenticateRequest(assertionForm("client", "a.b.c")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestPublicRoutes(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(httptest.NewRequest(http.MethodGet, HealthCheckRoute, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = f.do(httptest.NewRequest(http.MethodGet, AboutRoute, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"service":"clientauth"`)

	// one failed attempt so the counter has a sample
	f.do(authenticateRequest(assertionForm("client", "not-a-jwt")))
	rec = f.do(httptest.NewRequest(http.MethodGet, MetricsRoute, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `clientauth_authentications_total{outcome="failure",reason="signature_or_claim_invalid"} 1`)

	rec = f.do(httptest.NewRequest(http.MethodGet, AuthenticateRoute, nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func adminRequest(t *testing.T, target string, token string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestAdminRoutes(t *testing.T) {
	f := newFixture(t, nil)
	token, err := middleware.MintAdminToken(adminKey, "tester", time.Minute)
	require.NoError(t, err)

	valid := testutil.Sign(t, jwt.SigningMethodRS256, f.id.Key, testutil.Claims("client"), "")
	f.do(authenticateRequest(assertionForm("client", valid)))
	f.do(authenticateRequest(assertionForm("unknown", valid)))

	t.Run("Attempts", func(t *testing.T) {
		rec := f.do(adminRequest(t, ListAttemptsRoute, token))
		require.Equal(t, http.StatusOK, rec.Code)
		var entries []core.AuditEntry
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&entries))
		require.Len(t, entries, 2)
		assert.True(t, entries[0].Authenticated)
		assert.Equal(t, core.ReasonNoTrustedKeys, entries[1].Reason)
	})

	t.Run("Attempts Filtered By Client", func(t *testing.T) {
		rec := f.do(adminRequest(t, ListAttemptsRoute+"?client_id=unknown", token))
		require.Equal(t, http.StatusOK, rec.Code)
		var entries []core.AuditEntry
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&entries))
		require.Len(t, entries, 1)
		assert.Equal(t, "unknown", entries[0].ClientID)
	})

	t.Run("Invalid Limit", func(t *testing.T) {
		rec := f.do(adminRequest(t, ListAttemptsRoute+"?limit=abc", token))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Clients", func(t *testing.T) {
		rec := f.do(adminRequest(t, ListClientsRoute, token))
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, `"client_id":"client"`)
		assert.Contains(t, body, `"type":"X509CertificateBase64"`)
		assert.NotContains(t, body, f.id.CertificateBase64())
	})
}

func TestAdminAuth(t *testing.T) {
	f := newFixture(t, nil)

	wrongKey, err := middleware.MintAdminToken([]byte("another-key-another-key-another-k"), "tester", time.Minute)
	require.NoError(t, err)
	expired, err := middleware.MintAdminToken(adminKey, "tester", -time.Minute)
	require.NoError(t, err)
	noRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.AdminClaims{
		Roles: []string{"viewer"},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    middleware.AdminTokenIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}).SignedString(adminKey)
	require.NoError(t, err)

	tests := []struct {
		name       string
		token      string
		wantStatus int
	}{
		{"Missing Token", "", http.StatusUnauthorized},
		{"Wrong Key", wrongKey, http.StatusUnauthorized},
		{"Expired", expired, http.StatusUnauthorized},
		{"Missing Role", noRole, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(adminRequest(t, ListClientsRoute, tt.token))
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestAdminRoutes_Disabled(t *testing.T) {
	validator, err := assertion.NewValidator(testutil.Audience, keys.NewMaterializer(zerolog.Nop()), zerolog.Nop())
	require.NoError(t, err)
	reg, err := registry.NewStatic(nil)
	require.NoError(t, err)

	handler := NewServer(reg, validator, audit.NewNoopAuditor(), nil).Routes(nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, ListClientsRoute, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	token, err := middleware.MintAdminToken(adminKey, "tester", time.Minute)
	require.NoError(t, err)
	handler = NewServer(reg, validator, audit.NewNoopAuditor(), nil).Routes(adminKey)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, adminRequest(t, ListAttemptsRoute, token))
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}
