package models

import (
	"context"
	"time"
)

// AuditRecord is one append-only entry in the pipeline audit trail. Capability
// failures land here, as do stage outcomes and reviewer decisions.
type AuditRecord struct {
	ID        int       `gorm:"primary_key" json:"id"`
	ReportId  string    `gorm:"size:36;index;not null" json:"report_id"`
	Stage     string    `gorm:"size:30;not null" json:"stage"`
	Outcome   string    `gorm:"size:30;not null" json:"outcome"`
	Detail    string    `gorm:"type:text" json:"detail"`
	ActorId   string    `gorm:"size:36" json:"actor_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (s *GormStore) AppendAuditRecord(ctx context.Context, record *AuditRecord) error {
	return s.db.WithContext(ctx).Create(record).Error
}

func (s *GormStore) ListAuditRecords(ctx context.Context, reportId string) ([]AuditRecord, error) {
	var records []AuditRecord
	err := s.db.WithContext(ctx).
		Where("report_id = ?", reportId).
		Order("id").Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
