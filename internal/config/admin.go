package config

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/mehrbod2002/equitywatch/internal/auth"
	"github.com/mehrbod2002/equitywatch/internal/models"
	"github.com/mehrbod2002/equitywatch/internal/repository"
)

// EnsureAdminUser seeds the bootstrap admin when no user holds adminEmail.
// Empty credentials skip seeding.
func EnsureAdminUser(ctx context.Context, userRepo repository.UserRepository, adminEmail, adminPass string) error {
	if adminEmail == "" || adminPass == "" {
		slog.Warn("ADMIN_EMAIL or ADMIN_PASS not set; skipping admin bootstrap")
		return nil
	}
	adminEmail = strings.ToLower(strings.TrimSpace(adminEmail))

	user, err := userRepo.GetUserByEmail(ctx, adminEmail)
	if err != nil {
		return err
	}
	if user != nil {
		slog.Info("admin user already exists", "email", adminEmail)
		return nil
	}

	hashedPassword, err := auth.HashPassword(adminPass)
	if err != nil {
		return err
	}

	now := time.Now()
	admin := &models.User{
		Role:         models.RoleAdmin,
		FirstName:    "Admin",
		LastName:     "User",
		Email:        adminEmail,
		Password:     hashedPassword,
		Active:       true,
		DeviceTokens: []string{},
		CreatedOn:    now,
		CreatedBy:    "system",
		UpdatedOn:    now,
		UpdatedBy:    "system",
	}
	if err := userRepo.SaveUser(ctx, admin); err != nil {
		return err
	}

	slog.Info("default admin user created", "email", adminEmail)
	return nil
}
