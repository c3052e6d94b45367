package handler

import (
	"go-inventory-pos/internal/service"

	"github.com/gofiber/fiber/v2"
)

type RoleHandler struct {
	users       service.UserService
	permissions service.PermissionService
}

func NewRoleHandler(users service.UserService, permissions service.PermissionService) *RoleHandler {
	return &RoleHandler{users: users, permissions: permissions}
}

// GetRoles returns all available roles
// GET /api/v1/roles
func (h *RoleHandler) GetRoles(c *fiber.Ctx) error {
	roles, err := h.users.GetRoles(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(roles)
}

// GET /api/v1/permissions
func (h *RoleHandler) GetPermissions(c *fiber.Ctx) error {
	perms, err := h.permissions.ListPermissions(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(perms)
}
