package service

import (
	"context"

	"github.com/darmiel/clientauth/internal/core"
)

// Evaluator runs the client assertion pipeline, implemented by assertion.Validator.
type Evaluator interface {
	Evaluate(ctx context.Context, secrets []core.RegisteredSecret, parsed core.ParsedSecret) core.Outcome
}

// AuthenticateResult is returned for every attempt that reached the validator.
type AuthenticateResult struct {
	Authenticated bool   `json:"authenticated"`
	ClientID      string `json:"client_id,omitempty"`

	// Outcome holds the internal failure reason. It is never sent to the client.
	Outcome core.Outcome `json:"-"`
}
