package core

import "fmt"

// FailureReason categorizes why an authentication attempt was rejected.
// It is only used for logging, auditing and metrics, never returned to the client.
type FailureReason int

const (
	ReasonNone FailureReason = iota
	ReasonNotApplicable
	ReasonInvalidFormat
	ReasonKeyResolutionFailure
	ReasonNoTrustedKeys
	ReasonSignatureOrClaimInvalid
	ReasonSubjectIssuerMismatch
)

var reasonNames = map[FailureReason]string{
	ReasonNone:                    "none",
	ReasonNotApplicable:           "not_applicable",
	ReasonInvalidFormat:           "invalid_format",
	ReasonKeyResolutionFailure:    "key_resolution_failure",
	ReasonNoTrustedKeys:           "no_trusted_keys",
	ReasonSignatureOrClaimInvalid: "signature_or_claim_invalid",
	ReasonSubjectIssuerMismatch:   "subject_issuer_mismatch",
}

func (r FailureReason) String() string {
	if name, ok := reasonNames[r]; ok {
		return name
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler so reasons are readable in audit logs.
func (r FailureReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *FailureReason) UnmarshalText(text []byte) error {
	for reason, name := range reasonNames {
		if name == string(text) {
			*r = reason
			return nil
		}
	}
	return fmt.Errorf("unknown failure reason %q", text)
}

// Outcome is the internal result of one validation attempt.
type Outcome struct {
	Success bool
	Reason  FailureReason

	// Err holds the underlying detail of a failure, if any.
	Err error

	// Assertion is set once the signature and claims were verified.
	Assertion *ClientAssertion
}

// Succeeded returns a successful outcome.
func Succeeded(assertion *ClientAssertion) Outcome {
	return Outcome{Success: true, Reason: ReasonNone, Assertion: assertion}
}

// Failed returns a failed outcome with the given reason.
func Failed(reason FailureReason, err error) Outcome {
	return Outcome{Success: false, Reason: reason, Err: err}
}
