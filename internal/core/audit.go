package core

import "time"

type AuditEntry struct {
	// ID is the unique request ID (X-Correlation-ID)
	ID string `json:"id"`

	// Time is the timestamp of the event
	Time time.Time `json:"time"`

	// Action describing what happened (e.g. "client.authenticate")
	Action string `json:"action"`

	// ClientID is the client identity the caller claimed
	ClientID string `json:"client_id"`

	// CredentialType is the declared type of the presented credential
	CredentialType string `json:"credential_type,omitempty"`

	// Decision details
	Authenticated bool          `json:"authenticated"`
	Reason        FailureReason `json:"reason"`
	Error         string        `json:"error,omitempty"`

	// AssertionFingerprint identifies the presented assertion without storing it.
	AssertionFingerprint string `json:"assertion_fingerprint,omitempty"`

	// KeyID is the key that verified the assertion, if any.
	KeyID string `json:"key_id,omitempty"`
}

type Auditor interface {
	Log(entry AuditEntry) error
	Close() error
}

// AuditReader is implemented by auditors that can be queried.
type AuditReader interface {
	GetRecent(limit int) ([]AuditEntry, error)
	Find(filter func(entry AuditEntry) bool, limit int) ([]AuditEntry, error)
}
