package auth

import (
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// totpValidateOpts are the verification parameters: 6 digits, 30s period,
// one period of clock skew in either direction.
var totpValidateOpts = totp.ValidateOpts{
	Period:    30,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// GenerateTwoFactorSecret creates a new TOTP secret for the given account and
// returns the base32 secret together with the otpauth provisioning URL.
func GenerateTwoFactorSecret(accountEmail string) (secret, url string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "Electroshop Admin",
		AccountName: accountEmail,
	})
	if err != nil {
		return "", "", fmt.Errorf("generate totp secret: %w", err)
	}
	return key.Secret(), key.URL(), nil
}

// VerifyTwoFactorCode checks a 6-digit TOTP code against the stored secret.
// Codes from the adjacent time step are accepted to tolerate clock drift,
// which also means a code stays usable for one extra period after rotation.
func VerifyTwoFactorCode(code, secret string) bool {
	ok, err := totp.ValidateCustom(code, secret, time.Now().UTC(), totpValidateOpts)
	return err == nil && ok
}
