package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go-inventory-pos/internal/apperr"
	"go-inventory-pos/internal/geo"
	"go-inventory-pos/internal/mail"
	"go-inventory-pos/internal/model"
	"go-inventory-pos/internal/oauth"
	"go-inventory-pos/internal/repository"
	"go-inventory-pos/pkg/jwt"
	"go-inventory-pos/pkg/validator"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Second factors offered after the password step.
const (
	FactorEmail = "email"
	FactorTOTP  = "totp"
)

const oauthStateTTL = 10 * time.Minute

var errInvalidCredentials = apperr.AuthenticationFailed("invalid credentials")

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	Factor   string `json:"factor" validate:"required,oneof=email totp"`
}

type VerifyRequest struct {
	Username string `json:"username" validate:"required"`
	Code     string `json:"code" validate:"required,numeric,min=4,max=10"`
	// Factor defaults to email.
	Factor string `json:"factor" validate:"omitempty,oneof=email totp"`
	IP     string `json:"-"`
}

// LoginChallenge is the answer to a correct password: either confirmation
// that an email code went out, or the data needed to enrol an authenticator.
type LoginChallenge struct {
	Factor          string `json:"factor"`
	Message         string `json:"message"`
	ProvisioningURI string `json:"provisioning_uri,omitempty"`
	QRCode          string `json:"qr_code,omitempty"`
}

type LoginResponse struct {
	Token       string             `json:"token"`
	ExpiresIn   int                `json:"expires_in"`
	IsNew       bool               `json:"is_new"`
	User        model.UserResponse `json:"user"`
	Permissions []string           `json:"permissions"`
}

// OAuthStart carries the provider redirect and the signed state token the
// caller must hand back on the callback, typically in an HttpOnly cookie.
type OAuthStart struct {
	URL        string
	StateToken string
}

type OAuthCallback struct {
	StateToken string
	State      string
	Code       string
	IP         string
}

type ProfileResponse struct {
	User        model.UserResponse `json:"user"`
	Permissions []string           `json:"permissions"`
	SessionID   uuid.UUID          `json:"session_id"`
	ExpiresAt   time.Time          `json:"expires_at"`
}

type AuthService interface {
	LoginStep1(ctx context.Context, req LoginRequest) (*LoginChallenge, error)
	LoginStep2(ctx context.Context, req VerifyRequest) (*LoginResponse, error)
	ValidateBearer(ctx context.Context, token string) (*model.User, *model.Session, error)
	Logout(ctx context.Context, sessionID uuid.UUID) error
	Profile(ctx context.Context, user *model.User, session *model.Session) (*ProfileResponse, error)
	// SetupTOTP ensures the user has an authenticator secret and returns its enrolment data.
	SetupTOTP(ctx context.Context, user *model.User) (*LoginChallenge, error)

	BeginGoogle(ctx context.Context) (*OAuthStart, error)
	CompleteGoogle(ctx context.Context, cb OAuthCallback) (*LoginResponse, error)
}

type authService struct {
	db          *gorm.DB
	users       repository.UserRepository
	roles       repository.RoleRepository
	hasher      *PasswordHasher
	otp         OTPService
	totp        TOTPService
	sessions    SessionService
	permissions PermissionService
	mailer      mail.Mailer
	locator     geo.Locator
	otpTTL      time.Duration

	// Google sign-in is disabled when provider is nil.
	provider    oauth.Provider
	stateSecret []byte
}

type AuthDeps struct {
	DB          *gorm.DB
	Users       repository.UserRepository
	Roles       repository.RoleRepository
	Hasher      *PasswordHasher
	OTP         OTPService
	TOTP        TOTPService
	Sessions    SessionService
	Permissions PermissionService
	Mailer      mail.Mailer
	Locator     geo.Locator
	OTPTTL      time.Duration
	Provider    oauth.Provider
	StateSecret []byte
}

func NewAuthService(d AuthDeps) AuthService {
	locator := d.Locator
	if locator == nil {
		locator = geo.NopLocator{}
	}
	return &authService{
		db:          d.DB,
		users:       d.Users,
		roles:       d.Roles,
		hasher:      d.Hasher,
		otp:         d.OTP,
		totp:        d.TOTP,
		sessions:    d.Sessions,
		permissions: d.Permissions,
		mailer:      d.Mailer,
		locator:     locator,
		otpTTL:      d.OTPTTL,
		provider:    d.Provider,
		stateSecret: d.StateSecret,
	}
}

// checkPassword resolves username and verifies password. Unknown users and
// wrong passwords are indistinguishable, including in timing.
func (s *authService) checkPassword(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if isNotFound(err) {
		s.hasher.Burn(ctx, password)
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, apperr.Internal(err, "load user")
	}
	ok, err := s.hasher.Compare(ctx, user.Password, password)
	if err != nil {
		return nil, apperr.Internal(err, "verify password")
	}
	if !ok {
		return nil, errInvalidCredentials
	}
	return user, nil
}

func (s *authService) LoginStep1(ctx context.Context, req LoginRequest) (*LoginChallenge, error) {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return nil, apperr.Validation("%s", validator.Summary(errs))
	}
	user, err := s.checkPassword(ctx, req.Username, req.Password)
	if err != nil {
		slog.Info("login rejected", "username", req.Username)
		return nil, err
	}

	switch req.Factor {
	case FactorTOTP:
		if user.TOTPSecret == nil || *user.TOTPSecret == "" {
			return nil, apperr.Validation("2FA not configured")
		}
		return s.totpChallenge(*user.TOTPSecret, user.Username)
	default:
		code, err := s.otp.Generate(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		if err := s.mailer.SendOTP(ctx, user.Email, user.Username, code, s.otpTTL); err != nil {
			slog.Warn("otp mail failed", "user_id", user.ID, "err", err)
		}
		return &LoginChallenge{Factor: FactorEmail, Message: "otp sent"}, nil
	}
}

func (s *authService) totpChallenge(secret, account string) (*LoginChallenge, error) {
	uri, err := s.totp.ProvisioningURI(secret, account)
	if err != nil {
		return nil, apperr.Internal(err, "build provisioning uri")
	}
	qr, err := s.totp.QRCode(uri)
	if err != nil {
		return nil, apperr.Internal(err, "render qr code")
	}
	return &LoginChallenge{
		Factor:          FactorTOTP,
		Message:         "enter the code from your authenticator app",
		ProvisioningURI: uri,
		QRCode:          qr,
	}, nil
}

func (s *authService) LoginStep2(ctx context.Context, req VerifyRequest) (*LoginResponse, error) {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return nil, apperr.Validation("%s", validator.Summary(errs))
	}

	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil && !isNotFound(err) {
		return nil, apperr.Internal(err, "load user")
	}

	switch req.Factor {
	case FactorTOTP:
		if user == nil || user.TOTPSecret == nil || !s.totp.Verify(*user.TOTPSecret, req.Code) {
			return nil, apperr.AuthenticationFailed("invalid verification code")
		}
	default:
		// Unknown users look like users with no pending code.
		if user == nil {
			return nil, apperr.NotFound("no pending verification code")
		}
		if err := s.otp.Verify(ctx, user.ID, req.Code); err != nil {
			return nil, err
		}
	}

	return s.issueSession(ctx, user, req.IP)
}

func (s *authService) issueSession(ctx context.Context, user *model.User, ip string) (*LoginResponse, error) {
	grant, err := s.sessions.CreateOrRenew(ctx, user.ID, s.locator.Locate(ctx, ip))
	if err != nil {
		return nil, err
	}
	perms, err := s.permissions.EffectivePermissions(ctx, user)
	if err != nil {
		return nil, err
	}
	slog.Info("login succeeded", "user_id", user.ID, "username", user.Username)
	return &LoginResponse{
		Token:       grant.Token,
		ExpiresIn:   int(grant.Remaining / time.Second),
		IsNew:       grant.IsNew,
		User:        user.ToResponse(),
		Permissions: perms,
	}, nil
}

func (s *authService) ValidateBearer(ctx context.Context, token string) (*model.User, *model.Session, error) {
	session, err := s.sessions.Validate(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	return session.User, session, nil
}

func (s *authService) Logout(ctx context.Context, sessionID uuid.UUID) error {
	return s.sessions.Close(ctx, sessionID)
}

func (s *authService) Profile(ctx context.Context, user *model.User, session *model.Session) (*ProfileResponse, error) {
	perms, err := s.permissions.EffectivePermissions(ctx, user)
	if err != nil {
		return nil, err
	}
	return &ProfileResponse{
		User:        user.ToResponse(),
		Permissions: perms,
		SessionID:   session.ID,
		ExpiresAt:   session.ExpiresAt(),
	}, nil
}

func (s *authService) SetupTOTP(ctx context.Context, user *model.User) (*LoginChallenge, error) {
	secret, err := s.totp.EnsureSecret(ctx, user)
	if err != nil {
		return nil, err
	}
	return s.totpChallenge(secret, user.Username)
}

func (s *authService) BeginGoogle(ctx context.Context) (*OAuthStart, error) {
	if s.provider == nil {
		return nil, apperr.NotFound("google sign-in is not enabled")
	}
	verifier, challenge, err := oauth.NewPKCE()
	if err != nil {
		return nil, apperr.Internal(err, "generate pkce")
	}
	nonce := uuid.NewString()
	token, err := jwt.GenerateState(s.stateSecret, nonce, verifier, oauthStateTTL)
	if err != nil {
		return nil, apperr.Internal(err, "sign oauth state")
	}
	return &OAuthStart{URL: s.provider.AuthCodeURL(nonce, challenge), StateToken: token}, nil
}

// CompleteGoogle finds the local user by verified email, creating a
// password-less account with the user role on first sign-in.
func (s *authService) CompleteGoogle(ctx context.Context, cb OAuthCallback) (*LoginResponse, error) {
	if s.provider == nil {
		return nil, apperr.NotFound("google sign-in is not enabled")
	}
	claims, err := jwt.ParseState(s.stateSecret, cb.StateToken)
	if err != nil || cb.State == "" || claims.Nonce != cb.State {
		return nil, apperr.AuthenticationFailed("invalid oauth state")
	}
	identity, err := s.provider.Exchange(ctx, cb.Code, claims.Verifier)
	if err != nil {
		slog.Warn("oauth exchange failed", "provider", s.provider.Name(), "err", err)
		return nil, apperr.AuthenticationFailed("could not verify %s sign-in", s.provider.Name())
	}
	if identity.Email == "" || !identity.EmailVerified {
		return nil, apperr.AuthenticationFailed("%s account email is not verified", s.provider.Name())
	}

	user, err := s.users.FindByEmail(ctx, identity.Email)
	if isNotFound(err) {
		user, err = s.createOAuthUser(ctx, identity)
	}
	if err != nil {
		return nil, classify(err, "resolve oauth user")
	}
	return s.issueSession(ctx, user, cb.IP)
}

func (s *authService) createOAuthUser(ctx context.Context, identity *oauth.Claims) (*model.User, error) {
	email := strings.ToLower(identity.Email)
	role, err := s.roles.FindByCode(ctx, model.RoleUser)
	if err != nil {
		return nil, err
	}
	usernameTaken, _, err := s.users.Taken(ctx, email, email, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if usernameTaken {
		return nil, apperr.Conflict("username %q already exists", email)
	}

	user := &model.User{Username: email, Email: email, RoleID: &role.ID}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.users.Create(tx, user)
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, apperr.Conflict("account for %q already exists", email)
	}
	if err != nil {
		return nil, err
	}
	slog.Info("oauth user created", "user_id", user.ID, "provider", s.provider.Name())
	return s.users.FindByID(ctx, user.ID)
}
