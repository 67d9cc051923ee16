package assertion

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v5"

	"github.com/darmiel/clientauth/internal/core"
)

// Input length restrictions for the standard client authentication fields.
const (
	MaxClientIDLength  = 100
	MaxAssertionLength = 51200
	MaxSecretLength    = 100
)

var (
	// ErrNoCredential is returned when the request carries no client credential at all.
	ErrNoCredential = errors.New("no client credential in request")
	ErrInputTooLong = errors.New("input exceeds length restriction")
	ErrMissingField = errors.New("missing required field")
)

// ParseRequest extracts the client credential from the standard form fields of a token
// endpoint request: client_assertion_type and client_assertion (RFC 7523), or
// client_id and client_secret (posted or via HTTP basic authentication).
func ParseRequest(r *http.Request) (*core.ParsedSecret, error) {
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("parsing form: %w", err)
	}
	form := r.PostForm
	clientID := form.Get("client_id")
	if len(clientID) > MaxClientIDLength {
		return nil, fmt.Errorf("client_id: %w", ErrInputTooLong)
	}

	assertionType := form.Get("client_assertion_type")
	if assertionType != "" || form.Has("client_assertion") {
		assertion := form.Get("client_assertion")
		if assertion == "" {
			return nil, fmt.Errorf("client_assertion: %w", ErrMissingField)
		}
		if len(assertion) > MaxAssertionLength {
			return nil, fmt.Errorf("client_assertion: %w", ErrInputTooLong)
		}
		if assertionType != core.ClientAssertionTypeJWTBearer {
			// unknown assertion types are passed on and rejected as not applicable
			return &core.ParsedSecret{ID: clientID, Type: assertionType, Credential: assertion}, nil
		}
		if clientID == "" {
			sub, err := SubjectFromToken(assertion)
			if err != nil {
				return nil, fmt.Errorf("reading client id from assertion: %w", err)
			}
			if len(sub) > MaxClientIDLength {
				return nil, fmt.Errorf("assertion subject: %w", ErrInputTooLong)
			}
			clientID = sub
		}
		return &core.ParsedSecret{
			ID:         clientID,
			Type:       core.CredentialTypeJWTBearer,
			Credential: assertion,
		}, nil
	}

	if secret := form.Get("client_secret"); clientID != "" && secret != "" {
		if len(secret) > MaxSecretLength {
			return nil, fmt.Errorf("client_secret: %w", ErrInputTooLong)
		}
		return &core.ParsedSecret{ID: clientID, Type: core.CredentialTypeSharedSecret, Credential: secret}, nil
	}

	if user, pass, ok := r.BasicAuth(); ok && user != "" {
		if len(user) > MaxClientIDLength || len(pass) > MaxSecretLength {
			return nil, fmt.Errorf("basic authentication: %w", ErrInputTooLong)
		}
		return &core.ParsedSecret{ID: user, Type: core.CredentialTypeSharedSecret, Credential: pass}, nil
	}

	return nil, ErrNoCredential
}

// SubjectFromToken reads the 'sub' claim of a JWT without verifying it.
func SubjectFromToken(tokenString string) (string, error) {
	parser := jwt.NewParser()
	var claims jwt.RegisteredClaims
	if _, _, err := parser.ParseUnverified(tokenString, &claims); err != nil {
		return "", fmt.Errorf("parsing token: %w", err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("token missing 'sub' claim")
	}
	return claims.Subject, nil
}

// Extract returns the raw assertion of a JWT bearer credential.
// Credentials of any other type are not applicable, non-string or empty
// payloads (or a missing client id) are an invalid format.
func Extract(parsed core.ParsedSecret) (string, core.FailureReason, error) {
	if parsed.Type != core.CredentialTypeJWTBearer {
		return "", core.ReasonNotApplicable, fmt.Errorf("credential type '%s' is not a jwt bearer assertion", parsed.Type)
	}
	token, ok := parsed.Credential.(string)
	if !ok {
		return "", core.ReasonInvalidFormat, fmt.Errorf("credential is %T, not a string", parsed.Credential)
	}
	if token == "" {
		return "", core.ReasonInvalidFormat, errors.New("credential is an empty string")
	}
	if parsed.ID == "" {
		return "", core.ReasonInvalidFormat, errors.New("credential has no client id")
	}
	return token, core.ReasonNone, nil
}
