package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"image/png"
	"strings"
	"testing"
	"time"

	"go-inventory-pos/internal/model"
	"go-inventory-pos/internal/testutil"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

func TestTOTPVerifyWindow(t *testing.T) {
	e := newEnv(t)
	secret, err := e.totp.NewSecret("alice")
	if err != nil {
		t.Fatalf("new secret: %v", err)
	}

	now := e.clock.Now()
	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"current step", now, true},
		{"previous step", now.Add(-30 * time.Second), true},
		{"next step", now.Add(30 * time.Second), true},
		{"two steps old", now.Add(-90 * time.Second), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := totp.GenerateCode(secret, tt.at)
			if err != nil {
				t.Fatalf("generate: %v", err)
			}
			if got := e.totp.Verify(secret, code); got != tt.want {
				t.Errorf("Verify: expected %v, got %v", tt.want, got)
			}
		})
	}
	if e.totp.Verify(secret, "abc") {
		t.Error("non-numeric code must not verify")
	}
}

func TestTOTPProvisioning(t *testing.T) {
	e := newEnv(t)
	secret, err := e.totp.NewSecret("alice")
	if err != nil {
		t.Fatalf("new secret: %v", err)
	}

	uri, err := e.totp.ProvisioningURI(secret, "alice")
	if err != nil {
		t.Fatalf("uri: %v", err)
	}
	key, err := otp.NewKeyFromURL(uri)
	if err != nil {
		t.Fatalf("parse uri %q: %v", uri, err)
	}
	if key.Secret() != secret || key.Issuer() != "Inventory POS" || key.AccountName() != "alice" {
		t.Errorf("unexpected key from %q", uri)
	}
	if !strings.HasPrefix(uri, "otpauth://totp/") {
		t.Errorf("unexpected scheme in %q", uri)
	}

	qr, err := e.totp.QRCode(uri)
	if err != nil {
		t.Fatalf("qr: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(qr)
	if err != nil {
		t.Fatalf("decode qr: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("qr is not a png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != qrSize {
		t.Errorf("expected %dpx image, got %d", qrSize, b.Dx())
	}
}

func TestEnsureSecretPersists(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, e.db, "alice", model.RoleUser)

	first, err := e.totp.EnsureSecret(ctx, alice)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	reloaded, err := e.users.FindByID(ctx, alice.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	second, err := e.totp.EnsureSecret(ctx, reloaded)
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if first != second {
		t.Error("expected the stored secret to be reused")
	}
}

func TestTOTPProvisioningLabelWithColon(t *testing.T) {
	svc := NewTOTPService("Acme: Store", nil)
	secret, err := svc.NewSecret("bob")
	if err != nil {
		t.Fatalf("new secret: %v", err)
	}

	uri, err := svc.ProvisioningURI(secret, "bob:admin")
	if err != nil {
		t.Fatalf("uri: %v", err)
	}
	key, err := otp.NewKeyFromURL(uri)
	if err != nil {
		t.Fatalf("parse uri %q: %v", uri, err)
	}
	if key.Issuer() != "Acme Store" || key.AccountName() != "bobadmin" {
		t.Errorf("label not sanitised in %q: issuer %q account %q", uri, key.Issuer(), key.AccountName())
	}
	if key.Secret() != secret {
		t.Errorf("secret changed: %q != %q", key.Secret(), secret)
	}

	if _, err := svc.ProvisioningURI("not base32!", "bob"); err == nil {
		t.Error("expected an error for a malformed secret")
	}
}
