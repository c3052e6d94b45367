package service

import (
	"context"
	"log/slog"

	"go-inventory-pos/internal/apperr"
	"go-inventory-pos/internal/model"
	"go-inventory-pos/internal/repository"
)

type AdminAccount struct {
	Username string
	Email    string
	Password string
}

// SeedService installs default permissions and roles, and the first
// administrator when none exists yet.
type SeedService interface {
	Seed(ctx context.Context, admin AdminAccount) error
}

type seedService struct {
	permissions repository.PermissionRepository
	roles       repository.RoleRepository
	users       repository.UserRepository
	userService UserService
}

func NewSeedService(permissions repository.PermissionRepository, roles repository.RoleRepository, users repository.UserRepository, userService UserService) SeedService {
	return &seedService{permissions: permissions, roles: roles, users: users, userService: userService}
}

func (s *seedService) Seed(ctx context.Context, admin AdminAccount) error {
	if err := s.permissions.SeedDefaults(ctx); err != nil {
		return apperr.Internal(err, "seed permissions")
	}
	if err := s.roles.SeedDefaults(ctx); err != nil {
		return apperr.Internal(err, "seed roles")
	}

	admins, err := s.users.FindByRole(ctx, model.RoleAdmin)
	if err != nil {
		return apperr.Internal(err, "list admins")
	}
	if len(admins) > 0 {
		return nil
	}
	if admin.Password == "" {
		slog.Warn("no administrator exists and ADMIN_PASSWORD is not set; skipping admin bootstrap")
		return nil
	}

	// History attributes the bootstrap to a system actor.
	system := &model.User{Username: "system"}
	created, err := s.userService.CreateUser(ctx, system, CreateUserRequest{
		Username: admin.Username,
		Email:    admin.Email,
		Password: admin.Password,
		Role:     model.RoleAdmin,
	})
	if err != nil {
		return err
	}
	slog.Info("administrator created", "username", created.Username)
	return nil
}
