package core

import (
	"time"
)

// SecretType tags the kind of material stored in a RegisteredSecret.
type SecretType string

const (
	// SecretTypeSharedSecret is a symmetric key; the raw value is the HMAC key.
	SecretTypeSharedSecret SecretType = "SharedSecret"

	// SecretTypeX509CertificateBase64 is a base64 encoded (DER) or PEM encoded certificate.
	SecretTypeX509CertificateBase64 SecretType = "X509CertificateBase64"

	// SecretTypeJWKSReference is a URL pointing to a remote JSON Web Key Set.
	SecretTypeJWKSReference SecretType = "JWKSReference"

	// SecretTypeJSONWebKey is an inline JSON Web Key document.
	SecretTypeJSONWebKey SecretType = "JsonWebKey"
)

// KnownSecretTypes lists every secret type the key materializer understands.
var KnownSecretTypes = []SecretType{
	SecretTypeSharedSecret,
	SecretTypeX509CertificateBase64,
	SecretTypeJWKSReference,
	SecretTypeJSONWebKey,
}

// IsKnown reports whether t is one of KnownSecretTypes.
func (t SecretType) IsKnown() bool {
	for _, known := range KnownSecretTypes {
		if t == known {
			return true
		}
	}
	return false
}

// RegisteredSecret is a trust anchor registered for a client.
// It is owned by the ClientRegistry and never mutated after creation.
type RegisteredSecret struct {
	// ClientID is the client this secret belongs to.
	ClientID string `json:"client_id"`

	// Type selects how Value is turned into verification keys.
	Type SecretType `json:"type"`

	// Value is the opaque secret material (certificate, key, URL, ...).
	Value string `json:"-"`

	// Description is a free-form label shown in listings.
	Description string `json:"description,omitempty"`

	// Expiration is optional. Expired secrets contribute no keys.
	Expiration *time.Time `json:"expiration,omitempty"`
}

// Expired reports whether the secret has an expiration at or before now.
func (s RegisteredSecret) Expired(now time.Time) bool {
	return s.Expiration != nil && !s.Expiration.After(now)
}

// Algorithm families used when a key does not pin a concrete algorithm.
const (
	AlgorithmFamilyRSA   = "RSA"
	AlgorithmFamilyEC    = "EC"
	AlgorithmFamilyHMAC  = "HMAC"
	AlgorithmFamilyEdDSA = "EdDSA"
)

// VerificationKey is key material derived from a RegisteredSecret for a single validation call.
type VerificationKey struct {
	// KeyID is the "kid" (or certificate thumbprint) of the key, may be empty.
	KeyID string

	// Algorithm is either a concrete JWA name (e.g. "RS256") or one of the AlgorithmFamily constants.
	Algorithm string

	// Key is the public key (*rsa.PublicKey, *ecdsa.PublicKey, ed25519.PublicKey) or []byte for HMAC.
	Key any
}

// AlgorithmFamily returns the family of a JWA algorithm name, or "" if unsupported.
func AlgorithmFamily(alg string) string {
	switch alg {
	case "RS256", "RS384", "RS512", "PS256", "PS384", "PS512":
		return AlgorithmFamilyRSA
	case "ES256", "ES384", "ES512":
		return AlgorithmFamilyEC
	case "HS256", "HS384", "HS512":
		return AlgorithmFamilyHMAC
	case "EdDSA":
		return AlgorithmFamilyEdDSA
	case AlgorithmFamilyRSA, AlgorithmFamilyEC, AlgorithmFamilyHMAC:
		return alg
	}
	return ""
}

// Accepts reports whether the key may verify a token signed with alg.
// Keys pinned to a concrete algorithm only accept exactly that algorithm,
// keys carrying a family accept every algorithm of the family.
func (k VerificationKey) Accepts(alg string) bool {
	family := AlgorithmFamily(alg)
	if family == "" {
		return false
	}
	if k.Algorithm == "" {
		return false
	}
	if AlgorithmFamily(k.Algorithm) == k.Algorithm {
		return k.Algorithm == family
	}
	return k.Algorithm == alg
}
