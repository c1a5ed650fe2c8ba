package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/consolelogwin/veritas_backend/config"
	"bitbucket.org/consolelogwin/veritas_backend/utils"
	mysqlDriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// ReportFilter narrows ListReports. Zero values mean "no constraint".
type ReportFilter struct {
	Status      ReportStatus
	Kind        ReportKind
	EntityCodes []string
	Limit       int
}

// ReportStore is the durable storage contract the pipeline and the API layer
// work against. AdvanceReport is the state machine's single mutation path.
type ReportStore interface {
	CreateReport(ctx context.Context, report *Report) error
	GetReport(ctx context.Context, id string) (*Report, error)
	ListReports(ctx context.Context, filter ReportFilter) ([]Report, error)

	// AdvanceReport atomically moves a report from `from` to `to`, running
	// apply on the loaded report before the write (outcome attachment,
	// reviewer fields). It fails with *utils.StateError when from->to is not
	// in the transition table and with *utils.ConflictError when the stored
	// status is no longer `from`. Conflicts are never retried here.
	AdvanceReport(ctx context.Context, id string, from ReportStatus, to ReportStatus, apply func(*Report) error) (*Report, error)
}

// GormStore backs the store contracts with MySQL through GORM.
type GormStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

func (s *GormStore) CreateReport(ctx context.Context, report *Report) error {
	if err := s.db.WithContext(ctx).Create(report).Error; err != nil {
		if isDuplicateKeyErr(err) {
			return &utils.ConflictError{ReportId: report.ID}
		}
		return err
	}
	return nil
}

func (s *GormStore) GetReport(ctx context.Context, id string) (*Report, error) {
	var report Report
	err := s.db.WithContext(ctx).First(&report, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &report, nil
}

func (s *GormStore) ListReports(ctx context.Context, filter ReportFilter) ([]Report, error) {
	dbCtx := s.db.WithContext(ctx).Model(&Report{})
	if filter.Status != "" {
		dbCtx = dbCtx.Where("status = ?", filter.Status)
	}
	if filter.Kind != "" {
		dbCtx = dbCtx.Where("report_kind = ?", filter.Kind)
	}
	if len(filter.EntityCodes) > 0 {
		dbCtx = dbCtx.Where("entity_code IN ?", utils.UniqueSlice(filter.EntityCodes))
	}
	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 50
	}

	var reports []Report
	err := dbCtx.Order("submitted_at DESC").Limit(limit).Find(&reports).Error
	if err != nil {
		return nil, err
	}
	return reports, nil
}

func (s *GormStore) AdvanceReport(ctx context.Context, id string, from ReportStatus, to ReportStatus, apply func(*Report) error) (*Report, error) {
	if !CanTransition(from, to) {
		return nil, &utils.StateError{
			Action:  string(to),
			Current: string(from),
			Reason:  fmt.Sprintf("no transition %s -> %s", from, to),
		}
	}

	// Redis lock is a best-effort optimization to avoid doomed concurrent
	// writes. Correctness must not depend on Redis: the UPDATE below guards
	// on the expected status and loses cleanly on conflict.
	if locker := config.GetRedisLock(); locker != nil {
		lock, err := locker.Obtain(ctx, "report:transition:"+id, 10*time.Second, nil)
		if err == nil {
			defer lock.Release(context.Background())
		}
	}

	var updated *Report
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var report Report
		if err := tx.First(&report, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.ErrorRecordNotFound
			}
			return err
		}
		if report.Status != from {
			return &utils.ConflictError{ReportId: id, Expected: string(from)}
		}

		if apply != nil {
			if err := apply(&report); err != nil {
				return err
			}
		}
		report.Status = to
		if err := report.CheckOutcomeConsistency(); err != nil {
			return err
		}

		result := tx.Model(&Report{}).
			Where("id = ? AND status = ?", id, from).
			Select("*").Omit("id", "created_at").
			Updates(&report)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return &utils.ConflictError{ReportId: id, Expected: string(from)}
		}
		updated = &report
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
