package database

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/sangkips/brokerdesk-api/internal/domain/entity"
	"github.com/sangkips/brokerdesk-api/internal/domain/enum"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultRolePermissions is the role vocabulary a fresh deployment starts
// with. After seeding it lives in the database and may be edited there.
var DefaultRolePermissions = map[string][]string{
	"admin": {
		enum.PermViewPolicies, enum.PermManagePolicies, enum.PermManageCustomers,
		enum.PermCreatePayment, enum.PermOverrideArrears, enum.PermVoidRestore,
		enum.PermImportPayments, enum.PermViewReports, enum.PermManageUsers,
	},
	"supervisor": {
		enum.PermViewPolicies, enum.PermManagePolicies, enum.PermManageCustomers,
		enum.PermCreatePayment, enum.PermOverrideArrears, enum.PermVoidRestore,
		enum.PermImportPayments, enum.PermViewReports,
	},
	"cashier": {
		enum.PermViewPolicies, enum.PermManageCustomers,
		enum.PermCreatePayment, enum.PermViewReports,
	},
}

// DefaultCoverageTypes seeds the coverage vocabulary
var DefaultCoverageTypes = []string{
	"Third Party",
	"Third Party Fire & Theft",
	"Comprehensive",
	"Home",
	"Marine",
}

// SeedDefaultData seeds permissions, roles, coverage types and, when
// ADMIN_EMAIL and ADMIN_PASSWORD are set, a bootstrap admin user.
// Existing rows are left alone.
func SeedDefaultData(db *gorm.DB) error {
	slog.Info("seeding default data")

	names := map[string]bool{}
	for _, perms := range DefaultRolePermissions {
		for _, p := range perms {
			names[p] = true
		}
	}
	for name := range names {
		perm := entity.Permission{Name: name, GuardName: "web"}
		if err := db.Where("name = ?", name).FirstOrCreate(&perm).Error; err != nil {
			return fmt.Errorf("seed permission %s: %w", name, err)
		}
	}

	var allPermissions []entity.Permission
	if err := db.Find(&allPermissions).Error; err != nil {
		return fmt.Errorf("load permissions: %w", err)
	}
	byName := make(map[string]entity.Permission, len(allPermissions))
	for _, p := range allPermissions {
		byName[p.Name] = p
	}

	for roleName, permNames := range DefaultRolePermissions {
		var role entity.Role
		err := db.Where("name = ?", roleName).First(&role).Error
		if err == nil {
			continue
		}
		role = entity.Role{Name: roleName, GuardName: "web"}
		for _, n := range permNames {
			role.Permissions = append(role.Permissions, byName[n])
		}
		if err := db.Create(&role).Error; err != nil {
			return fmt.Errorf("seed role %s: %w", roleName, err)
		}
	}

	for _, name := range DefaultCoverageTypes {
		ct := entity.CoverageType{Name: name, Active: true}
		if err := db.Where("name = ?", name).FirstOrCreate(&ct).Error; err != nil {
			return fmt.Errorf("seed coverage type %s: %w", name, err)
		}
	}

	if err := seedAdmin(db); err != nil {
		slog.Warn("failed to seed admin user", "error", err)
	}

	slog.Info("default data seeding completed")
	return nil
}

func seedAdmin(db *gorm.DB) error {
	adminEmail := viper.GetString("ADMIN_EMAIL")
	adminPassword := viper.GetString("ADMIN_PASSWORD")
	if adminEmail == "" || adminPassword == "" {
		return nil
	}

	var existing entity.User
	if err := db.Where("email = ?", adminEmail).First(&existing).Error; err == nil {
		slog.Info("admin user already exists", "email", adminEmail)
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	var role entity.Role
	if err := db.Where("name = ?", "admin").First(&role).Error; err != nil {
		return fmt.Errorf("load admin role: %w", err)
	}

	firstName, lastName := "System", "Admin"
	if name := strings.TrimSpace(viper.GetString("ADMIN_NAME")); name != "" {
		firstName, lastName, _ = strings.Cut(name, " ")
	}
	admin := entity.User{
		FirstName: firstName,
		LastName:  lastName,
		Email:     adminEmail,
		Password:  string(hashed),
		Active:    true,
		Roles:     []entity.Role{role},
	}
	if loc := viper.GetString("ADMIN_LOCATION"); loc != "" {
		admin.Location = &loc
	}
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	slog.Info("admin user created", "email", adminEmail)
	return nil
}
