package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homestay_hub/internal/domain"
)

func TestTokens_IssueAndParse(t *testing.T) {
	tk := NewTokens("0123456789abcdef0123", time.Hour)
	tok, err := tk.Issue(domain.User{ID: 7, Role: domain.RoleHost})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", tok.TokenType)

	p, err := tk.Parse("Bearer " + tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, domain.Principal{UserID: 7, Role: domain.RoleHost}, p)
}

func TestTokens_Expired(t *testing.T) {
	tk := NewTokens("0123456789abcdef0123", time.Minute)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tk.now = func() time.Time { return base }
	tok, err := tk.Issue(domain.User{ID: 1, Role: domain.RoleGuest})
	require.NoError(t, err)

	tk.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, err = tk.Parse(tok.AccessToken)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestTokens_WrongSecretAndAlg(t *testing.T) {
	a := NewTokens("secret-number-one-xx", time.Hour)
	b := NewTokens("secret-number-two-xx", time.Hour)
	tok, err := a.Issue(domain.User{ID: 1, Role: domain.RoleAdmin})
	require.NoError(t, err)
	_, err = b.Parse(tok.AccessToken)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Role: "admin"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = a.Parse(none)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = a.Parse("")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestPassword(t *testing.T) {
	h, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.True(t, CheckPassword(h, "hunter22"))
	assert.False(t, CheckPassword(h, "hunter23"))
	assert.False(t, CheckPassword("", "anything"))
}

func TestOTP_CodeRoundTrip(t *testing.T) {
	o := NewOTP(5 * time.Minute)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	o.now = func() time.Time { return now }

	secret, code, err := o.NewSecret("+10000000000")
	require.NoError(t, err)
	assert.Len(t, code, 6)
	assert.True(t, o.Validate(secret, code))
	if code != "000000" {
		assert.False(t, o.Validate(secret, "000000"))
	}

	// two periods later the code is outside the skew window
	o.now = func() time.Time { return now.Add(11 * time.Minute) }
	assert.False(t, o.Validate(secret, code))
}
