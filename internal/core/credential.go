package core

import "time"

// ClientAssertionTypeJWTBearer is the value of the client_assertion_type form field
// for JWT client assertions (RFC 7523).
const ClientAssertionTypeJWTBearer = "urn:ietf:params:oauth:client-assertion-type:jwt-bearer"

// Credential types produced by the request parser.
const (
	CredentialTypeJWTBearer    = "JwtBearer"
	CredentialTypeSharedSecret = "SharedSecret"
)

// ParsedSecret is the credential a client presented at the token endpoint.
type ParsedSecret struct {
	// ID is the client identifier the credential claims to authenticate.
	ID string

	// Type is the declared credential type (e.g. CredentialTypeJWTBearer).
	Type string

	// Credential is the raw credential payload. For JWT bearer assertions this is the token string.
	Credential any
}

// ClientAssertion is the claim view of a verified client assertion.
type ClientAssertion struct {
	Raw       string
	KeyID     string
	Algorithm string
	Issuer    string
	Subject   string
	Audience  []string
	ExpiresAt time.Time
	NotBefore *time.Time
}
