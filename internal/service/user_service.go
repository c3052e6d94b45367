package service

import (
	"context"
	"fmt"
	"strings"

	"go-inventory-pos/internal/apperr"
	"go-inventory-pos/internal/model"
	"go-inventory-pos/internal/repository"
	"go-inventory-pos/pkg/validator"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreateUserRequest struct {
	Username    string   `json:"username" validate:"required,min=3,max=100"`
	Email       string   `json:"email" validate:"required,email"`
	Password    string   `json:"password" validate:"required,strong_password"`
	Role        string   `json:"role" validate:"required,oneof=admin user"`
	Permissions []string `json:"permissions"`
}

// UpdateUserRequest changes only the fields that are set. A non-nil
// Permissions replaces the explicit grants.
type UpdateUserRequest struct {
	Username    *string   `json:"username" validate:"omitempty,min=3,max=100"`
	Email       *string   `json:"email" validate:"omitempty,email"`
	Password    *string   `json:"password" validate:"omitempty,strong_password"`
	Role        *string   `json:"role" validate:"omitempty,oneof=admin user"`
	Permissions *[]string `json:"permissions"`
}

// RegisterRequest is the self-service sign-up body. Accounts created this
// way always get the user role.
type RegisterRequest struct {
	Username        string `json:"username" validate:"required,min=3,max=100"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,strong_password"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

type UserService interface {
	Register(ctx context.Context, req RegisterRequest) (*model.User, error)
	CreateUser(ctx context.Context, actor *model.User, req CreateUserRequest) (*model.User, error)
	UpdateUser(ctx context.Context, actor *model.User, id uuid.UUID, req UpdateUserRequest) (*model.User, error)
	DeleteUser(ctx context.Context, actor *model.User, id uuid.UUID) error
	GetAllUsers(ctx context.Context) ([]model.UserResponse, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*model.UserResponse, error)
	GetRoles(ctx context.Context) ([]model.Role, error)
}

type userService struct {
	db          *gorm.DB
	users       repository.UserRepository
	roles       repository.RoleRepository
	permissions repository.PermissionRepository
	sales       repository.SaleRepository
	purchases   repository.PurchaseRepository
	hasher      *PasswordHasher
	totp        TOTPService
	history     HistoryService
}

func NewUserService(db *gorm.DB, users repository.UserRepository, roles repository.RoleRepository, permissions repository.PermissionRepository, sales repository.SaleRepository, purchases repository.PurchaseRepository, hasher *PasswordHasher, totp TOTPService, history HistoryService) UserService {
	return &userService{
		db:          db,
		users:       users,
		roles:       roles,
		permissions: permissions,
		sales:       sales,
		purchases:   purchases,
		hasher:      hasher,
		totp:        totp,
		history:     history,
	}
}

// resolvePermissions loads codes, failing with Validation naming any unknown ones.
func (s *userService) resolvePermissions(ctx context.Context, codes []string) ([]model.Permission, error) {
	found, err := s.permissions.FindByCodes(ctx, codes)
	if err != nil {
		return nil, apperr.Internal(err, "load permissions")
	}
	known := make(map[string]bool, len(found))
	for _, p := range found {
		known[p.Code] = true
	}
	var missing []string
	for _, c := range codes {
		if !known[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, apperr.Validation("unknown permissions: %s", strings.Join(missing, ", "))
	}
	return found, nil
}

func (s *userService) resolveRole(ctx context.Context, code string) (*model.Role, error) {
	role, err := s.roles.FindByCode(ctx, code)
	if isNotFound(err) {
		return nil, apperr.Validation("unknown role %q", code)
	}
	if err != nil {
		return nil, apperr.Internal(err, "load role")
	}
	return role, nil
}

func (s *userService) checkTaken(ctx context.Context, username, email string, exclude uuid.UUID) error {
	usernameTaken, emailTaken, err := s.users.Taken(ctx, username, email, exclude)
	if err != nil {
		return apperr.Internal(err, "check user uniqueness")
	}
	if usernameTaken {
		return apperr.Conflict("username %q already exists", username)
	}
	if emailTaken {
		return apperr.Conflict("email %q already exists", email)
	}
	return nil
}

func (s *userService) CreateUser(ctx context.Context, actor *model.User, req CreateUserRequest) (*model.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return nil, apperr.Validation("%s", validator.Summary(errs))
	}
	if err := s.checkTaken(ctx, req.Username, req.Email, uuid.Nil); err != nil {
		return nil, err
	}
	role, err := s.resolveRole(ctx, req.Role)
	if err != nil {
		return nil, err
	}
	perms, err := s.resolvePermissions(ctx, req.Permissions)
	if err != nil {
		return nil, err
	}

	hashed, err := s.hasher.Hash(ctx, req.Password)
	if err != nil {
		return nil, apperr.Internal(err, "hash password")
	}
	secret, err := s.totp.NewSecret(req.Username)
	if err != nil {
		return nil, apperr.Internal(err, "generate totp secret")
	}

	user := &model.User{
		Username:   req.Username,
		Email:      req.Email,
		Password:   hashed,
		RoleID:     &role.ID,
		TOTPSecret: &secret,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.users.Create(tx, user); err != nil {
			return err
		}
		if len(perms) > 0 {
			if err := s.users.ReplacePermissions(tx, user, perms); err != nil {
				return err
			}
		}
		user.Role = role
		return s.history.Record(tx, actor, model.ActionCreate, ModuleUsers,
			fmt.Sprintf("created user %s", user.Username), nil, user.ToResponse())
	})
	if err != nil {
		return nil, classify(err, "create user")
	}
	return s.reload(ctx, user.ID)
}

func (s *userService) Register(ctx context.Context, req RegisterRequest) (*model.User, error) {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return nil, apperr.Validation("%s", validator.Summary(errs))
	}
	self := &model.User{Username: strings.TrimSpace(req.Username)}
	return s.CreateUser(ctx, self, CreateUserRequest{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     model.RoleUser,
	})
}

func (s *userService) reload(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if isNotFound(err) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, apperr.Internal(err, "load user")
	}
	return user, nil
}

func (s *userService) UpdateUser(ctx context.Context, actor *model.User, id uuid.UUID, req UpdateUserRequest) (*model.User, error) {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return nil, apperr.Validation("%s", validator.Summary(errs))
	}
	user, err := s.reload(ctx, id)
	if err != nil {
		return nil, err
	}
	before := user.ToResponse()

	if req.Username != nil {
		user.Username = strings.TrimSpace(*req.Username)
	}
	if req.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Username != nil || req.Email != nil {
		if err := s.checkTaken(ctx, user.Username, user.Email, user.ID); err != nil {
			return nil, err
		}
	}
	if req.Role != nil {
		role, err := s.resolveRole(ctx, *req.Role)
		if err != nil {
			return nil, err
		}
		user.RoleID, user.Role = &role.ID, role
	}
	var perms []model.Permission
	if req.Permissions != nil {
		if perms, err = s.resolvePermissions(ctx, *req.Permissions); err != nil {
			return nil, err
		}
	}
	if req.Password != nil {
		if user.Password, err = s.hasher.Hash(ctx, *req.Password); err != nil {
			return nil, apperr.Internal(err, "hash password")
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.users.Update(tx, user); err != nil {
			return err
		}
		if req.Permissions != nil {
			if err := s.users.ReplacePermissions(tx, user, perms); err != nil {
				return err
			}
		}
		return s.history.Record(tx, actor, model.ActionUpdate, ModuleUsers,
			fmt.Sprintf("updated user %s", user.Username), before, user.ToResponse())
	})
	if err != nil {
		return nil, classify(err, "update user")
	}
	return s.reload(ctx, id)
}

// DeleteUser removes the account with its grants, sessions and pending
// codes. Users that have recorded sales or purchases are kept.
func (s *userService) DeleteUser(ctx context.Context, actor *model.User, id uuid.UUID) error {
	if actor.ID == id {
		return apperr.Conflict("you cannot delete your own account")
	}
	user, err := s.reload(ctx, id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		nSales, err := s.sales.CountByUser(tx, id)
		if err != nil {
			return err
		}
		nPurchases, err := s.purchases.CountByUser(tx, id)
		if err != nil {
			return err
		}
		if nSales+nPurchases > 0 {
			return apperr.Conflict("user %q has recorded transactions", user.Username)
		}
		if err := s.users.Delete(tx, id); err != nil {
			return err
		}
		return s.history.Record(tx, actor, model.ActionDelete, ModuleUsers,
			fmt.Sprintf("deleted user %s", user.Username), user.ToResponse(), nil)
	})
	return classify(err, "delete user")
}

func (s *userService) GetAllUsers(ctx context.Context) ([]model.UserResponse, error) {
	users, err := s.users.FindAll(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "list users")
	}
	out := make([]model.UserResponse, len(users))
	for i := range users {
		out[i] = users[i].ToResponse()
	}
	return out, nil
}

func (s *userService) GetUserByID(ctx context.Context, id uuid.UUID) (*model.UserResponse, error) {
	user, err := s.reload(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := user.ToResponse()
	return &resp, nil
}

func (s *userService) GetRoles(ctx context.Context) ([]model.Role, error) {
	roles, err := s.roles.FindAll(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "list roles")
	}
	return roles, nil
}
