// Package audit records authentication attempts.
package audit

import (
	"fmt"

	"github.com/darmiel/clientauth/internal/config"
	"github.com/darmiel/clientauth/internal/core"
)

// New creates the auditor selected by cfg. A disabled audit config yields a NoopAuditor.
func New(cfg config.AuditConfig) (core.Auditor, error) {
	if !cfg.Enabled {
		return NewNoopAuditor(), nil
	}
	switch cfg.Type {
	case config.AuditTypeMemory:
		return NewInMemoryAuditor(), nil
	case config.AuditTypeFile:
		return NewFileAuditor(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown audit type '%s'", cfg.Type)
	}
}
