package audit

import "github.com/darmiel/clientauth/internal/core"

var _ core.Auditor = (*NoopAuditor)(nil)

// NoopAuditor is used when auditing is disabled.
type NoopAuditor struct{}

func NewNoopAuditor() *NoopAuditor {
	return &NoopAuditor{}
}

func (n *NoopAuditor) Log(core.AuditEntry) error {
	return nil
}

func (n *NoopAuditor) Close() error {
	return nil
}
