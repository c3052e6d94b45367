package model

// Role represents user roles in the system
type Role struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Code        string       `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"` // admin, user
	Name        string       `gorm:"type:varchar(100)" json:"name"`
	Description string       `gorm:"type:text" json:"description"`
	Permissions []Permission `gorm:"many2many:role_permissions;" json:"permissions,omitempty"`
}

// Role codes as constants
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// DefaultRoles defines the default roles in the system
var DefaultRoles = []Role{
	{
		Code:        RoleAdmin,
		Name:        "Administrator",
		Description: "Full system access; satisfies every permission check",
	},
	{
		Code:        RoleUser,
		Name:        "User",
		Description: "Point-of-sale operator with limited permissions",
	},
}

// DefaultUserPermissions are the codes implied by the user role.
var DefaultUserPermissions = []string{
	PermProductView,
	PermCategoryView,
	PermSaleCreate,
	PermProfileView,
}
