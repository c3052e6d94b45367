// Package mail delivers transactional email. Callers treat every send as
// fire-and-forget: failures are logged, never propagated into the business
// transaction that triggered them.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go-inventory-pos/internal/model"
)

// Mailer sends transactional emails.
type Mailer interface {
	// SendOTP delivers a login code to the user.
	SendOTP(ctx context.Context, toEmail, username, code string, expiresIn time.Duration) error
	// SendLowStockAlert lists products that dropped below their minimum.
	SendLowStockAlert(ctx context.Context, toEmail string, items []model.LowStockItem) error
	// SendPasswordReset emails a reset link carrying the raw token.
	SendPasswordReset(ctx context.Context, toEmail, token string, expiresIn time.Duration) error
	// SendUsernameRecovery reminds the owner of an address of their username.
	SendUsernameRecovery(ctx context.Context, toEmail, username string) error
}

// NopMailer logs and discards all outbound email. Used when SMTP is not configured.
type NopMailer struct{}

func (NopMailer) SendOTP(_ context.Context, toEmail, username, _ string, _ time.Duration) error {
	slog.Debug("mail disabled: otp not sent", "to", toEmail, "username", username)
	return nil
}

func (NopMailer) SendLowStockAlert(_ context.Context, toEmail string, items []model.LowStockItem) error {
	slog.Debug("mail disabled: low stock alert not sent", "to", toEmail, "items", len(items))
	return nil
}

func (NopMailer) SendPasswordReset(_ context.Context, toEmail, _ string, _ time.Duration) error {
	slog.Debug("mail disabled: password reset not sent", "to", toEmail)
	return nil
}

func (NopMailer) SendUsernameRecovery(_ context.Context, toEmail, _ string) error {
	slog.Debug("mail disabled: username recovery not sent", "to", toEmail)
	return nil
}

// formatDuration renders a duration as a human-readable expiry string.
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		hours := int(d.Hours())
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	default:
		mins := int(d.Minutes())
		if mins == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", mins)
	}
}

func otpBody(username, code string, expiresIn time.Duration) string {
	return fmt.Sprintf("Hello %s,\n\nYour login code is: %s\n\nIt expires in %s. If you did not try to sign in, change your password.",
		username, code, formatDuration(expiresIn))
}

func lowStockBody(items []model.LowStockItem) string {
	var b strings.Builder
	b.WriteString("The following products are below their minimum inventory:\n\n")
	for _, it := range items {
		fmt.Fprintf(&b, "- %s (%s): %d in stock, minimum %d\n", it.Name, it.Code, it.Inventory, it.MinInventory)
	}
	return b.String()
}

func resetBody(link string, expiresIn time.Duration) string {
	return "You requested a password reset.\n\n" +
		"Click the link below to choose a new password:\n\n" +
		link + "\n\n" +
		"This link expires in " + formatDuration(expiresIn) + ". If you did not request a reset, ignore this email."
}

func usernameBody(username string) string {
	return fmt.Sprintf("Your username is: %s\n\nIf you did not request this reminder, ignore this email.", username)
}
