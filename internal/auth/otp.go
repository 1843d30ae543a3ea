package auth

import (
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// OTP produces short-lived numeric codes from a per-challenge secret.
type OTP struct {
	period time.Duration
	now    func() time.Time
}

func NewOTP(period time.Duration) *OTP {
	if period < 30*time.Second {
		period = 30 * time.Second
	}
	return &OTP{period: period, now: time.Now}
}

func (o *OTP) opts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    uint(o.period / time.Second),
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

// NewSecret returns a fresh base32 secret and the code currently valid for it.
func (o *OTP) NewSecret(account string) (secret, code string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		Period:      uint(o.period / time.Second),
		Digits:      otp.DigitsSix,
	})
	if err != nil {
		return "", "", fmt.Errorf("generate otp secret: %w", err)
	}
	code, err = totp.GenerateCodeCustom(key.Secret(), o.now(), o.opts())
	if err != nil {
		return "", "", fmt.Errorf("generate otp code: %w", err)
	}
	return key.Secret(), code, nil
}

func (o *OTP) Validate(secret, code string) bool {
	ok, err := totp.ValidateCustom(code, secret, o.now(), o.opts())
	return err == nil && ok
}
