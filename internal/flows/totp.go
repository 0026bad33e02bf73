package flows

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/hex"
	"errors"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// TOTP issues and checks the one-time codes sent over SMS. The shared
// secret for an (account, device) pair is derived from a server key, so no
// per-user secret is stored; the engine keeps only the SHA-256 of the issued
// code.
type TOTP struct {
	key  []byte
	opts totp.ValidateOpts
}

// NewTOTP builds a generator. period and skew are in time steps of period
// seconds.
func NewTOTP(key []byte, period time.Duration, skew uint, digits int) (*TOTP, error) {
	if len(key) < 16 {
		return nil, errors.New("totp key must be at least 16 bytes")
	}
	if period < time.Second {
		return nil, errors.New("totp period must be at least one second")
	}
	d := otp.DigitsSix
	if digits == 8 {
		d = otp.DigitsEight
	} else if digits != 0 && digits != 6 {
		return nil, errors.New("totp digits must be 6 or 8")
	}
	return &TOTP{
		key: key,
		opts: totp.ValidateOpts{
			Period:    uint(period / time.Second),
			Skew:      skew,
			Digits:    d,
			Algorithm: otp.AlgorithmSHA1,
		},
	}, nil
}

func (t *TOTP) secret(accountID, deviceID string) string {
	mac := hmac.New(sha1.New, t.key)
	mac.Write([]byte(accountID))
	mac.Write([]byte{0})
	mac.Write([]byte(deviceID))
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(mac.Sum(nil))
}

// Generate returns the code valid at now.
func (t *TOTP) Generate(accountID, deviceID string, now time.Time) (string, error) {
	return totp.GenerateCodeCustom(t.secret(accountID, deviceID), now, t.opts)
}

// Check reports whether code is inside the time window at now and matches
// the hash of the code that was issued.
func (t *TOTP) Check(code, issuedHash, accountID, deviceID string, now time.Time) bool {
	if code == "" || issuedHash == "" {
		return false
	}
	ok, err := totp.ValidateCustom(code, t.secret(accountID, deviceID), now, t.opts)
	if err != nil || !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(HashCode(code)), []byte(issuedHash)) == 1
}

// HashCode is the stored form of an issued code.
func HashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
