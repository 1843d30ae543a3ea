package app

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homestay_hub/internal/domain"
	"homestay_hub/internal/shared"
)

type accountsFixture struct {
	*fixture
	svc        *AccountService
	notifier   *fakeNotifier
	challenges *fakeChallenges
}

func newAccounts(t *testing.T, limiter *shared.KeyedLimiter) *accountsFixture {
	f := newFixture(t)
	a := &accountsFixture{fixture: f, notifier: &fakeNotifier{}, challenges: &fakeChallenges{}}
	a.svc = NewAccountService(f.store, a.challenges, a.notifier, f.tokens(), fakeOTP{}, AccountsConfig{
		OTPTTL:         5 * time.Minute,
		OTPMaxAttempts: 3,
		PhoneLimiter:   limiter,
	})
	return a
}

func TestRegisterAndLogin(t *testing.T) {
	a := newAccounts(t, nil)

	sess, err := a.svc.Register(a.ctx, "Lan", " Lan@Example.com ", "correct horse")
	require.NoError(t, err)
	assert.True(t, sess.IsNewUser)
	assert.Equal(t, domain.RoleGuest, sess.User.Role)
	assert.NotEmpty(t, sess.Token.AccessToken)

	_, err = a.svc.Register(a.ctx, "Lan again", "lan@example.com", "correct horse")
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = a.svc.Register(a.ctx, "", "not-an-email", "short")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 3)

	sess, err = a.svc.Login(a.ctx, "LAN@example.com", "correct horse")
	require.NoError(t, err)
	assert.False(t, sess.IsNewUser)

	_, err = a.svc.Login(a.ctx, "lan@example.com", "wrong")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = a.svc.Login(a.ctx, "nobody@example.com", "x")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestOTP_NewGuestWithParkedQRCode(t *testing.T) {
	a := newAccounts(t, nil)

	ttl, err := a.svc.RequestOTP(a.ctx, "+84 901-234-567", "ABC123")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, ttl)
	require.Len(t, a.notifier.sent, 1)
	assert.Equal(t, "+84901234567", a.notifier.sent[0].phone)
	assert.Contains(t, a.notifier.sent[0].text, "123456")

	// first login needs a name; the challenge survives the rejection
	_, err = a.svc.VerifyOTP(a.ctx, VerifyOTP{Phone: "+84901234567", Code: "123456"})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)

	sess, err := a.svc.VerifyOTP(a.ctx, VerifyOTP{Phone: "+84901234567", Code: "123456", Name: "Tuan"})
	require.NoError(t, err)
	assert.True(t, sess.IsNewUser)
	assert.Equal(t, "ABC123", sess.QRCode)
	require.NotNil(t, sess.User.Phone)
	assert.Equal(t, "+84901234567", *sess.User.Phone)

	// the challenge is single use
	_, err = a.svc.VerifyOTP(a.ctx, VerifyOTP{Phone: "+84901234567", Code: "123456"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = a.svc.RequestOTP(a.ctx, "+84901234567", "")
	require.NoError(t, err)
	sess, err = a.svc.VerifyOTP(a.ctx, VerifyOTP{Phone: "+84901234567", Code: "123456"})
	require.NoError(t, err)
	assert.False(t, sess.IsNewUser)
	assert.Empty(t, sess.QRCode)
}

func TestOTP_AttemptsAreCapped(t *testing.T) {
	a := newAccounts(t, nil)
	_, err := a.svc.RequestOTP(a.ctx, "+84901234567", "")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = a.svc.VerifyOTP(a.ctx, VerifyOTP{Phone: "+84901234567", Code: "000000", Name: "X"})
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	}
	_, err = a.svc.VerifyOTP(a.ctx, VerifyOTP{Phone: "+84901234567", Code: "123456", Name: "X"})
	assert.ErrorIs(t, err, domain.ErrTooManyRequests)

	// the locked challenge is gone
	_, ok, _ := a.challenges.GetChallenge(a.ctx, "+84901234567")
	assert.False(t, ok)
}

func TestRequestOTP_Rules(t *testing.T) {
	a := newAccounts(t, shared.NewKeyedLimiter(0.001, 1))

	_, err := a.svc.RequestOTP(a.ctx, "0901", "")
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = a.svc.RequestOTP(a.ctx, "+84901234567", "")
	require.NoError(t, err)
	_, err = a.svc.RequestOTP(a.ctx, "+84901234567", "")
	assert.ErrorIs(t, err, domain.ErrTooManyRequests)

	a.notifier.err = errors.New("gateway down")
	_, err = a.svc.RequestOTP(a.ctx, "+84900000001", "")
	require.Error(t, err)
	_, ok, _ := a.challenges.GetChallenge(a.ctx, "+84900000001")
	assert.False(t, ok)
}
