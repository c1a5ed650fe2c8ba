// seed-demo creates the demo entities and users for a fresh environment.
// Existing rows are updated in place, so reruns are safe.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-demo
//
// The password for every demo user defaults to "Veritas2024!" and can be
// overridden with SEED_DEMO_PASSWORD.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/consolelogwin/veritas_backend/config"
	"bitbucket.org/consolelogwin/veritas_backend/models"
	"bitbucket.org/consolelogwin/veritas_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm/clause"
)

const defaultDemoPassword = "Veritas2024!"

var demoEntities = []models.Entity{
	{Code: "MBANK001", Name: "mBank S.A.", ShortName: "mBank", NIP: "5260215088", LEI: "259400DZXF7UJKK2AY35", EntityType: "bank"},
	{Code: "PKOBP001", Name: "PKO Bank Polski S.A.", ShortName: "PKO BP", NIP: "5250007738", LEI: "P4GTT6GF1W40CVIMFR43", EntityType: "bank"},
	{Code: "PEKAO001", Name: "Bank Pekao S.A.", ShortName: "Pekao", NIP: "5260006841", LEI: "5493000LKS7B3UTF7H35", EntityType: "bank"},
	{Code: "BZWBK001", Name: "Santander Bank Polska S.A.", ShortName: "Santander", NIP: "8960005673", LEI: "259400LGXW3K0GDAG361", EntityType: "bank"},
}

type demoUser struct {
	email        string
	name         string
	role         models.UserRole
	entityAccess []string
}

var demoUsers = []demoUser{
	{email: "submitter.mbank@veritas.demo", name: "Marta Kowalska", role: models.UserRoleSubmitter, entityAccess: []string{"MBANK001"}},
	{email: "submitter.pkobp@veritas.demo", name: "Jan Nowak", role: models.UserRoleSubmitter, entityAccess: []string{"PKOBP001", "PEKAO001"}},
	{email: "supervisor@veritas.demo", name: "Anna Wisniewska", role: models.UserRoleSupervisor, entityAccess: []string{"*"}},
	{email: "supervisor2@veritas.demo", name: "Piotr Zielinski", role: models.UserRoleSupervisor, entityAccess: []string{"*"}},
	{email: "admin@veritas.demo", name: "System Administrator", role: models.UserRoleAdministrator, entityAccess: []string{"*"}},
}

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	models.MigrateTable()

	password := strings.TrimSpace(os.Getenv("SEED_DEMO_PASSWORD"))
	if password == "" {
		password = defaultDemoPassword
	}
	hashed, err := utils.HashPassword(password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
		os.Exit(1)
	}

	for _, entity := range demoEntities {
		err := db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "short_name", "nip", "lei", "entity_type"}),
		}).Create(&entity).Error
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to seed entity %s: %v\n", entity.Code, err)
			os.Exit(1)
		}
		fmt.Printf("entity %s (%s)\n", entity.Code, entity.Name)
	}

	for _, demo := range demoUsers {
		var existing models.User
		err := db.WithContext(ctx).Where("email = ?", demo.email).First(&existing).Error
		if err == nil {
			existing.Name = demo.name
			existing.Role = demo.role
			existing.EntityAccess = demo.entityAccess
			existing.PasswordHash = string(hashed)
			existing.IsActive = true
			if err := db.WithContext(ctx).Save(&existing).Error; err != nil {
				fmt.Fprintf(os.Stderr, "failed to update user %s: %v\n", demo.email, err)
				os.Exit(1)
			}
			fmt.Printf("user %s updated (%s)\n", demo.email, demo.role)
			continue
		}

		user := models.User{
			ID:           uuid.NewString(),
			Email:        demo.email,
			Name:         demo.name,
			Role:         demo.role,
			EntityAccess: demo.entityAccess,
			PasswordHash: string(hashed),
			IsActive:     true,
		}
		if err := db.WithContext(ctx).Create(&user).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to create user %s: %v\n", demo.email, err)
			os.Exit(1)
		}
		fmt.Printf("user %s created (%s)\n", demo.email, demo.role)
	}

	fmt.Println("demo data seeded")
}
