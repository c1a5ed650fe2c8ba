package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/consolelogwin/veritas_backend/utils"
	"gorm.io/gorm"
)

// User is the authenticated caller. Role and entity scope come from the
// authentication collaborator and are immutable for the duration of a request.
type User struct {
	ID    string   `gorm:"primary_key;size:36" json:"id"`
	Email string   `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Name  string   `gorm:"size:255" json:"name"`
	Role  UserRole `gorm:"size:20;not null" json:"role"`

	// EntityAccess lists entity codes a submitter may act on.
	// Supervisory roles carry the wildcard "*".
	EntityAccess []string `gorm:"type:json;serializer:json" json:"entity_access"`

	PasswordHash string     `gorm:"size:100" json:"-"`
	IsActive     bool       `gorm:"default:true" json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (u *User) CanAccessEntity(entityCode string) bool {
	if u.Role.Supervisory() {
		return true
	}
	for _, code := range u.EntityAccess {
		if code == "*" || code == entityCode {
			return true
		}
	}
	return false
}

func (s *GormStore) GetUser(ctx context.Context, id string) (*User, error) {
	var user User
	err := s.db.WithContext(ctx).First(&user, "id = ? AND is_active = true", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := s.db.WithContext(ctx).First(&user, "email = ? AND is_active = true", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ListSupervisors returns the supervisor pool that gets notified when a
// report finishes the pipeline.
func (s *GormStore) ListSupervisors(ctx context.Context) ([]User, error) {
	var users []User
	err := s.db.WithContext(ctx).
		Where("role IN ? AND is_active = true", []UserRole{UserRoleSupervisor, UserRoleAdministrator}).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (s *GormStore) TouchUserLogin(ctx context.Context, id string) error {
	now := time.Now().UTC()
	return s.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", id).
		Update("last_login_at", &now).Error
}
