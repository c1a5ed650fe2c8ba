package models

import (
	"log"

	"bitbucket.org/consolelogwin/veritas_backend/config"
)

// MigrateTable runs AutoMigrate for every model. AutoMigrate can run DDL that
// blocks tables; allow skipping on startup and running as a separate job.
func MigrateTable() {
	db := config.GetDB()
	err := db.AutoMigrate(
		&User{},
		&Entity{},
		&Report{},
		&Notification{},
		&AuditRecord{},
	)
	if err != nil {
		log.Printf("auto-migrate failed: %v", err)
	}
}
