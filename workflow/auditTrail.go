package workflow

import (
	"context"

	"bitbucket.org/consolelogwin/veritas_backend/config"
	"bitbucket.org/consolelogwin/veritas_backend/models"
	"github.com/sirupsen/logrus"
)

// AuditSink receives the append-only audit trail of the pipeline: stage
// outcomes, absorbed capability failures, reviewer decisions. Recording must
// never fail the pipeline, so the interface returns nothing.
type AuditSink interface {
	Record(ctx context.Context, record *models.AuditRecord)
}

// AuditStore is the durable side of the sink.
type AuditStore interface {
	AppendAuditRecord(ctx context.Context, record *models.AuditRecord) error
}

type storeAuditSink struct {
	store  AuditStore
	logger *logrus.Logger
}

func NewAuditSink(store AuditStore) AuditSink {
	return &storeAuditSink{store: store, logger: config.GetLogger()}
}

func (s *storeAuditSink) Record(ctx context.Context, record *models.AuditRecord) {
	if err := s.store.AppendAuditRecord(ctx, record); err != nil {
		config.LogError(s.logger, "auditTrail.go", "Record", "AppendAuditRecord", record, err)
	}
}

// NopAuditSink discards records. Used by tooling that has no database.
type NopAuditSink struct{}

func (NopAuditSink) Record(ctx context.Context, record *models.AuditRecord) {}
