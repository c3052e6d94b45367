package service

import (
	"context"

	"go-inventory-pos/internal/apperr"
	"go-inventory-pos/internal/model"
	"go-inventory-pos/internal/repository"
)

// PermissionService decides authorization. The rule table is:
//
//	role = admin                         => allowed
//	code in role grants ∪ user grants    => allowed
//	otherwise                            => PermissionDenied
//
// Grants are read fresh on every check.
type PermissionService interface {
	Check(ctx context.Context, user *model.User, code string) error
	EffectivePermissions(ctx context.Context, user *model.User) ([]string, error)
	ListPermissions(ctx context.Context) ([]model.Permission, error)
}

type permissionService struct {
	permissions repository.PermissionRepository
}

func NewPermissionService(permissions repository.PermissionRepository) PermissionService {
	return &permissionService{permissions: permissions}
}

func (s *permissionService) Check(ctx context.Context, user *model.User, code string) error {
	if user == nil {
		return apperr.Unauthenticated("authentication required")
	}
	if user.IsAdmin() {
		return nil
	}
	ok, err := s.permissions.UserHas(ctx, user.ID, user.RoleID, code)
	if err != nil {
		return apperr.Internal(err, "check permission")
	}
	if !ok {
		return apperr.PermissionDenied("missing permission %q", code)
	}
	return nil
}

func (s *permissionService) EffectivePermissions(ctx context.Context, user *model.User) ([]string, error) {
	if user.IsAdmin() {
		all, err := s.permissions.FindAll(ctx)
		if err != nil {
			return nil, apperr.Internal(err, "list permissions")
		}
		codes := make([]string, len(all))
		for i, p := range all {
			codes[i] = p.Code
		}
		return codes, nil
	}
	codes, err := s.permissions.EffectiveCodes(ctx, user.ID, user.RoleID)
	if err != nil {
		return nil, apperr.Internal(err, "resolve permissions")
	}
	return codes, nil
}

func (s *permissionService) ListPermissions(ctx context.Context) ([]model.Permission, error) {
	all, err := s.permissions.FindAll(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "list permissions")
	}
	return all, nil
}
