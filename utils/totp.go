package utils

import (
	"time"

	"github.com/pquerna/otp/totp"
)

const totpIssuer = "ManageNow"

// GenerateTOTPSecret returns the shared secret and its otpauth:// URL.
func GenerateTOTPSecret(email string) (string, string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: email,
	})
	if err != nil {
		return "", "", err
	}

	return key.Secret(), key.URL(), nil
}

func VerifyTOTP(secret, code string) bool {
	if secret == "" || code == "" {
		return false
	}
	return totp.Validate(code, secret)
}

// TOTPCode is used by tests and the seed command to produce a valid code.
func TOTPCode(secret string, at time.Time) (string, error) {
	return totp.GenerateCode(secret, at)
}
