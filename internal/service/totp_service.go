package service

import (
	"bytes"
	"context"
	"encoding/base32"
	"encoding/base64"
	"fmt"
	"image/png"
	"strings"
	"time"

	"go-inventory-pos/internal/apperr"
	"go-inventory-pos/internal/model"
	"go-inventory-pos/internal/repository"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	totpPeriod = 30
	totpSkew   = 1
	qrSize     = 256
)

var b32NoPadding = base32.StdEncoding.WithPadding(base32.NoPadding)

// TOTPService manages authenticator-app secrets.
type TOTPService interface {
	// NewSecret generates a base32 secret without persisting it.
	NewSecret(account string) (string, error)
	// EnsureSecret returns the user's secret, generating and storing one first if needed.
	EnsureSecret(ctx context.Context, user *model.User) (string, error)
	// ProvisioningURI returns the otpauth:// key URI for an authenticator app.
	ProvisioningURI(secret, account string) (string, error)
	// QRCode renders uri as a base64 PNG.
	QRCode(uri string) (string, error)
	Verify(secret, code string) bool
}

type totpService struct {
	issuer string
	users  repository.UserRepository
	now    func() time.Time
}

func NewTOTPService(issuer string, users repository.UserRepository) TOTPService {
	return &totpService{issuer: labelPart(issuer), users: users, now: time.Now}
}

func (s *totpService) NewSecret(account string) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: account,
		Period:      totpPeriod,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", err
	}
	return key.Secret(), nil
}

func (s *totpService) EnsureSecret(ctx context.Context, user *model.User) (string, error) {
	if user.TOTPSecret != nil && *user.TOTPSecret != "" {
		return *user.TOTPSecret, nil
	}
	secret, err := s.NewSecret(user.Username)
	if err != nil {
		return "", apperr.Internal(err, "generate totp secret")
	}
	if err := s.users.SetTOTPSecret(ctx, user.ID, secret); err != nil {
		return "", apperr.Internal(err, "store totp secret")
	}
	user.TOTPSecret = &secret
	return secret, nil
}

func (s *totpService) ProvisioningURI(secret, account string) (string, error) {
	raw, err := b32NoPadding.DecodeString(strings.ToUpper(secret))
	if err != nil {
		return "", fmt.Errorf("decode totp secret: %w", err)
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: labelPart(account),
		Period:      totpPeriod,
		Secret:      raw,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", err
	}
	return key.URL(), nil
}

// labelPart drops the ':' that separates issuer and account in the key label.
func labelPart(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, ":", ""))
}

func (s *totpService) QRCode(uri string) (string, error) {
	key, err := otp.NewKeyFromURL(uri)
	if err != nil {
		return "", err
	}
	img, err := key.Image(qrSize, qrSize)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Verify accepts the code for the current step or one step either side.
func (s *totpService) Verify(secret, code string) bool {
	ok, err := totp.ValidateCustom(code, secret, s.now().UTC(), totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      totpSkew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}
