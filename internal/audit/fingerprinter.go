package audit

import (
	"crypto/sha256"
	"encoding/base64"
)

// CalculateFingerprint identifies a presented credential without storing it.
// Empty credentials have no fingerprint.
func CalculateFingerprint(credential string) string {
	if credential == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(credential))
	return base64.StdEncoding.EncodeToString(hash[:])
}
