package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/consolelogwin/veritas_backend/config"
	"gorm.io/gorm"
)

const entityNameCacheTTL = 10 * time.Minute

// Entity is a supervised financial institution.
type Entity struct {
	Code       string    `gorm:"primary_key;size:32" json:"code"`
	Name       string    `gorm:"size:255;not null" json:"name"`
	ShortName  string    `gorm:"size:100" json:"short_name"`
	NIP        string    `gorm:"size:20" json:"nip"`
	LEI        string    `gorm:"size:20" json:"lei"`
	EntityType string    `gorm:"size:20" json:"entity_type"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (s *GormStore) ListEntities(ctx context.Context) ([]Entity, error) {
	var entities []Entity
	err := s.db.WithContext(ctx).Order("code").Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return entities, nil
}

// EntityName resolves a code to its official name, falling back to a
// placeholder so submission never fails on a directory gap. Names change
// rarely, so the lookup goes through a best-effort redis cache.
func (s *GormStore) EntityName(ctx context.Context, code string) string {
	cacheKey := "entity:name:" + code
	var cached string
	if hit, err := config.GetRedisObject(cacheKey, &cached); err == nil && hit {
		return cached
	}

	var entity Entity
	err := s.db.WithContext(ctx).First(&entity, "code = ?", code).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			config.LogError(config.GetLogger(), "entity.go", "EntityName", "First", code, err)
		}
		return fmt.Sprintf("Entity %s", code)
	}

	_ = config.SetRedisObject(cacheKey, entity.Name, entityNameCacheTTL)
	return entity.Name
}
