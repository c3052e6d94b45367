package handler

import (
	"time"

	"go-inventory-pos/internal/middleware"
	"go-inventory-pos/internal/service"

	"github.com/gofiber/fiber/v2"
)

const oauthStateCookie = "oauth_state"

type AuthHandler struct {
	authService     service.AuthService
	recoveryService service.RecoveryService
	secureCookies   bool
}

func NewAuthHandler(authService service.AuthService, recoveryService service.RecoveryService, secureCookies bool) *AuthHandler {
	return &AuthHandler{authService: authService, recoveryService: recoveryService, secureCookies: secureCookies}
}

type emailRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// Login checks the password and starts the second factor.
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req service.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	if req.Factor == "" {
		req.Factor = service.FactorEmail
	}

	challenge, err := h.authService.LoginStep1(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(challenge)
}

// Verify completes the second factor and issues a session.
// POST /api/v1/auth/login/verify
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	var req service.VerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	req.IP = c.IP()

	resp, err := h.authService.LoginStep2(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.authService.Logout(c.UserContext(), middleware.CurrentSession(c).ID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	profile, err := h.authService.Profile(c.UserContext(), actor(c), middleware.CurrentSession(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}

// POST /api/v1/auth/2fa/setup
func (h *AuthHandler) SetupTOTP(c *fiber.Ctx) error {
	challenge, err := h.authService.SetupTOTP(c.UserContext(), actor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(challenge)
}

// ForgotPassword always answers the same way so addresses cannot be probed.
// POST /api/v1/auth/password/forgot
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req emailRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	if err := h.recoveryService.RequestPasswordReset(c.UserContext(), req.Email); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"message": "If the address is registered, a reset link has been sent"})
}

// POST /api/v1/auth/password/reset
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req resetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	if req.Token == "" || req.NewPassword == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "token and new_password are required"})
	}
	if err := h.recoveryService.ResetPassword(c.UserContext(), req.Token, req.NewPassword); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Password updated successfully"})
}

// POST /api/v1/auth/password/change
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var req changePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "old_password and new_password are required"})
	}
	if err := h.recoveryService.ChangePassword(c.UserContext(), actor(c), req.OldPassword, req.NewPassword); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Password updated successfully"})
}

// POST /api/v1/auth/username/recover
func (h *AuthHandler) RecoverUsername(c *fiber.Ctx) error {
	var req emailRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	if err := h.recoveryService.RecoverUsername(c.UserContext(), req.Email); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"message": "If the address is registered, the username has been sent"})
}

// GoogleLogin redirects to the provider and keeps the signed state in a cookie.
// GET /api/v1/auth/google/login
func (h *AuthHandler) GoogleLogin(c *fiber.Ctx) error {
	start, err := h.authService.BeginGoogle(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	c.Cookie(&fiber.Cookie{
		Name:     oauthStateCookie,
		Value:    start.StateToken,
		Path:     "/api/v1/auth/google",
		MaxAge:   int((10 * time.Minute).Seconds()),
		Secure:   h.secureCookies,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.Redirect(start.URL, fiber.StatusFound)
}

// GET /api/v1/auth/google/callback
func (h *AuthHandler) GoogleCallback(c *fiber.Ctx) error {
	stateToken := c.Cookies(oauthStateCookie)
	c.Cookie(&fiber.Cookie{
		Name:     oauthStateCookie,
		Path:     "/api/v1/auth/google",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
	})

	if msg := c.Query("error"); msg != "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "sign-in was cancelled: " + msg})
	}

	resp, err := h.authService.CompleteGoogle(c.UserContext(), service.OAuthCallback{
		StateToken: stateToken,
		State:      c.Query("state"),
		Code:       c.Query("code"),
		IP:         c.IP(),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}
