package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"net/url"
	"time"

	"go-inventory-pos/internal/model"
)

// SMTPConfig holds all configuration for SMTPMailer.
type SMTPConfig struct {
	Host         string
	Port         string
	Username     string
	Password     string
	FromAddress  string
	ResetURLBase string
}

// SMTPMailer sends transactional email via SMTP with mandatory STARTTLS.
type SMTPMailer struct {
	cfg SMTPConfig
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) compose(toEmail, subject, body string) string {
	return "From: " + m.cfg.FromAddress + "\r\n" +
		"To: " + toEmail + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"\r\n" +
		body
}

func (m *SMTPMailer) resetLink(token string) string {
	return m.cfg.ResetURLBase + "?token=" + url.QueryEscape(token)
}

func (m *SMTPMailer) SendOTP(ctx context.Context, toEmail, username, code string, expiresIn time.Duration) error {
	msg := m.compose(toEmail, "Your login code", otpBody(username, code, expiresIn))
	if err := m.sendMail(ctx, toEmail, msg); err != nil {
		return fmt.Errorf("sending otp email: %w", err)
	}
	return nil
}

func (m *SMTPMailer) SendLowStockAlert(ctx context.Context, toEmail string, items []model.LowStockItem) error {
	subject := fmt.Sprintf("Low stock: %d product(s) below minimum", len(items))
	if err := m.sendMail(ctx, toEmail, m.compose(toEmail, subject, lowStockBody(items))); err != nil {
		return fmt.Errorf("sending low stock alert: %w", err)
	}
	return nil
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, toEmail, token string, expiresIn time.Duration) error {
	msg := m.compose(toEmail, "Reset your password", resetBody(m.resetLink(token), expiresIn))
	if err := m.sendMail(ctx, toEmail, msg); err != nil {
		return fmt.Errorf("sending password reset email: %w", err)
	}
	return nil
}

func (m *SMTPMailer) SendUsernameRecovery(ctx context.Context, toEmail, username string) error {
	msg := m.compose(toEmail, "Your username", usernameBody(username))
	if err := m.sendMail(ctx, toEmail, msg); err != nil {
		return fmt.Errorf("sending username recovery email: %w", err)
	}
	return nil
}

// sendMail dials the SMTP server, enforces STARTTLS (rejects plaintext sessions),
// authenticates, and delivers msg. The connection respects ctx cancellation.
func (m *SMTPMailer) sendMail(ctx context.Context, toEmail, msg string) error {
	conn, err := (&net.Dialer{}).DialContext(ctx, "tcp", net.JoinHostPort(m.cfg.Host, m.cfg.Port))
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp client: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); !ok {
		return fmt.Errorf("smtp server does not advertise STARTTLS: refusing plaintext session")
	}
	if err := c.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
		return fmt.Errorf("smtp starttls: %w", err)
	}

	if m.cfg.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := c.Mail(m.cfg.FromAddress); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	if err := c.Rcpt(toEmail); err != nil {
		return fmt.Errorf("smtp RCPT TO: %w", err)
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := fmt.Fprint(wc, msg); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("smtp data close: %w", err)
	}

	return c.Quit()
}
