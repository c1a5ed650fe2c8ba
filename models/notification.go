package models

import (
	"context"
	"time"

	"bitbucket.org/consolelogwin/veritas_backend/utils"
)

// MessageContent is the human-readable part of a notification, produced by
// the compose capability (or its fixed-language fallback).
type MessageContent struct {
	Title string `json:"title"`
	Body  string `json:"message"`
}

// Notification is a message for one recipient. Created once, never mutated
// apart from the read flag; live delivery is at-most-once per channel and
// never durable — the stored row is the inbox copy.
type Notification struct {
	ID       string `gorm:"primary_key;size:36" json:"id"`
	UserId   string `gorm:"size:36;index;not null" json:"user_id"`
	ReportId string `gorm:"size:36;index" json:"report_id"`

	Kind    EventKind `gorm:"size:30;not null" json:"kind"`
	Title   string    `gorm:"size:255" json:"title"`
	Message string    `gorm:"type:text" json:"message"`

	Context map[string]any `gorm:"type:json;serializer:json" json:"context"`

	Read      bool       `gorm:"default:false" json:"read"`
	ReadAt    *time.Time `json:"read_at"`
	ExpiresAt *time.Time `json:"expires_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (s *GormStore) SaveNotification(ctx context.Context, notification *Notification) error {
	return s.db.WithContext(ctx).Create(notification).Error
}

func (s *GormStore) ListNotifications(ctx context.Context, userId string, unreadOnly bool) ([]Notification, error) {
	dbCtx := s.db.WithContext(ctx).
		Where("user_id = ?", userId).
		Where("expires_at IS NULL OR expires_at > ?", time.Now().UTC())
	if unreadOnly {
		dbCtx = dbCtx.Where("`read` = false")
	}

	var notifications []Notification
	err := dbCtx.Order("created_at DESC").Limit(100).Find(&notifications).Error
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

func (s *GormStore) MarkNotificationRead(ctx context.Context, userId string, id string) error {
	now := time.Now().UTC()
	result := s.db.WithContext(ctx).Model(&Notification{}).
		Where("id = ? AND user_id = ?", id, userId).
		Updates(map[string]any{"read": true, "read_at": &now})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrorRecordNotFound
	}
	return nil
}

