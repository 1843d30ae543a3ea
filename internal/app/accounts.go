package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"homestay_hub/internal/adapters/observability"
	"homestay_hub/internal/auth"
	"homestay_hub/internal/domain"
	"homestay_hub/internal/shared"
)

const minPasswordLen = 8

var validate = validator.New()

type OTPSource interface {
	NewSecret(account string) (secret, code string, err error)
	Validate(secret, code string) bool
}

type AccountsConfig struct {
	OTPTTL         time.Duration
	OTPMaxAttempts int
	// PhoneLimiter throttles code requests per phone number.
	PhoneLimiter *shared.KeyedLimiter
}

// AccountService signs users in with a password or a one-time code.
type AccountService struct {
	store      domain.Store
	challenges domain.ChallengeStore
	notifier   domain.Notifier
	tokens     TokenIssuer
	otp        OTPSource
	cfg        AccountsConfig
}

func NewAccountService(s domain.Store, ch domain.ChallengeStore, n domain.Notifier, t TokenIssuer, o OTPSource, cfg AccountsConfig) *AccountService {
	if cfg.OTPMaxAttempts <= 0 {
		cfg.OTPMaxAttempts = 5
	}
	if cfg.OTPTTL <= 0 {
		cfg.OTPTTL = 5 * time.Minute
	}
	return &AccountService{store: s, challenges: ch, notifier: n, tokens: t, otp: o, cfg: cfg}
}

type Session struct {
	Token     auth.Token
	User      domain.User
	IsNewUser bool
	// QRCode is the review code parked with the login challenge, if any.
	QRCode string
}

func normEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// normPhone keeps a leading + and the digits; spaces and dashes are dropped.
func normPhone(s string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(s) {
		switch {
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (s *AccountService) session(u domain.User, isNew bool) (Session, error) {
	tok, err := s.tokens.Issue(u)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: tok, User: u, IsNewUser: isNew}, nil
}

func (s *AccountService) Login(ctx context.Context, email, password string) (Session, error) {
	u, err := s.store.GetUserByEmail(ctx, normEmail(email))
	if errors.Is(err, domain.ErrNotFound) {
		return Session{}, fmt.Errorf("%w: invalid email or password", domain.ErrUnauthorized)
	}
	if err != nil {
		return Session{}, err
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return Session{}, fmt.Errorf("%w: invalid email or password", domain.ErrUnauthorized)
	}
	return s.session(u, false)
}

func (s *AccountService) Register(ctx context.Context, name, email, password string) (Session, error) {
	email = normEmail(email)
	verr := &domain.ValidationError{}
	if strings.TrimSpace(name) == "" {
		verr.Add("name", "is required")
	}
	if err := validate.Var(email, "required,email"); err != nil {
		verr.Add("email", "must be a valid email address")
	}
	if len(password) < minPasswordLen {
		verr.Add("password", fmt.Sprintf("must be at least %d characters", minPasswordLen))
	}
	if err := verr.OrNil(); err != nil {
		return Session{}, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return Session{}, err
	}
	u := domain.User{Name: strings.TrimSpace(name), Email: &email, PasswordHash: hash, Role: domain.RoleGuest}
	if err := s.store.CreateUser(ctx, &u); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return Session{}, fmt.Errorf("%w: email already registered", domain.ErrConflict)
		}
		return Session{}, err
	}
	return s.session(u, true)
}

// RequestOTP sends a fresh code to phone. qrCode, when set, is handed back
// after a successful verification so the guest can finish their review.
func (s *AccountService) RequestOTP(ctx context.Context, phone, qrCode string) (time.Duration, error) {
	phone = normPhone(phone)
	if err := validate.Var(phone, "required,e164"); err != nil {
		return 0, domain.NewValidationError("phone", "must be in international format, e.g. +84901234567")
	}
	if !s.cfg.PhoneLimiter.Allow(phone) {
		observability.ObserveOTP("throttled")
		return 0, fmt.Errorf("%w: wait before requesting another code", domain.ErrTooManyRequests)
	}
	secret, code, err := s.otp.NewSecret(phone)
	if err != nil {
		return 0, err
	}
	c := domain.Challenge{Phone: phone, Secret: secret, QRCode: strings.TrimSpace(qrCode)}
	if err := s.challenges.SaveChallenge(ctx, c, s.cfg.OTPTTL); err != nil {
		return 0, err
	}
	text := fmt.Sprintf("Your Homestay Hub code is %s. It expires in %d minutes.", code, int(s.cfg.OTPTTL.Minutes()))
	if err := s.notifier.SendSMS(ctx, phone, text); err != nil {
		_ = s.challenges.DeleteChallenge(ctx, phone)
		observability.ObserveOTP("send_failed")
		return 0, err
	}
	observability.ObserveOTP("sent")
	return s.cfg.OTPTTL, nil
}

type VerifyOTP struct {
	Phone string
	Code  string
	Name  string
	Email string
}

// VerifyOTP checks a code and signs the phone's owner in, creating a guest
// account on first use.
func (s *AccountService) VerifyOTP(ctx context.Context, in VerifyOTP) (Session, error) {
	phone := normPhone(in.Phone)
	c, ok, err := s.challenges.GetChallenge(ctx, phone)
	if err != nil {
		return Session{}, err
	}
	if !ok {
		observability.ObserveOTP("expired")
		return Session{}, fmt.Errorf("%w: code expired, request a new one", domain.ErrUnauthorized)
	}
	if c.Attempts >= s.cfg.OTPMaxAttempts {
		_ = s.challenges.DeleteChallenge(ctx, phone)
		observability.ObserveOTP("locked")
		return Session{}, fmt.Errorf("%w: too many attempts, request a new code", domain.ErrTooManyRequests)
	}
	if !s.otp.Validate(c.Secret, strings.TrimSpace(in.Code)) {
		c.Attempts++
		if err := s.challenges.SaveChallenge(ctx, c, s.cfg.OTPTTL); err != nil {
			log.Warn().Err(err).Msg("otp attempt not recorded")
		}
		observability.ObserveOTP("invalid")
		return Session{}, fmt.Errorf("%w: wrong code", domain.ErrUnauthorized)
	}

	u, err := s.store.GetUserByPhone(ctx, phone)
	isNew := errors.Is(err, domain.ErrNotFound)
	if err != nil && !isNew {
		return Session{}, err
	}
	if isNew {
		if u, err = s.createPhoneUser(ctx, phone, in); err != nil {
			return Session{}, err
		}
		log.Info().Int64("user_id", u.ID).Msg("guest registered by phone")
	}
	if err := s.challenges.DeleteChallenge(ctx, phone); err != nil {
		log.Warn().Err(err).Msg("otp challenge not deleted")
	}
	observability.ObserveOTP("verified")

	out, err := s.session(u, isNew)
	if err != nil {
		return Session{}, err
	}
	out.QRCode = c.QRCode
	return out, nil
}

func (s *AccountService) createPhoneUser(ctx context.Context, phone string, in VerifyOTP) (domain.User, error) {
	verr := &domain.ValidationError{}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		verr.Add("name", "is required for new accounts")
	}
	var email *string
	if e := normEmail(in.Email); e != "" {
		if err := validate.Var(e, "email"); err != nil {
			verr.Add("email", "must be a valid email address")
		}
		email = &e
	}
	if err := verr.OrNil(); err != nil {
		return domain.User{}, err
	}
	u := domain.User{Name: name, Phone: &phone, Email: email, Role: domain.RoleGuest}
	if err := s.store.CreateUser(ctx, &u); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return domain.User{}, fmt.Errorf("%w: email already registered", domain.ErrConflict)
		}
		return domain.User{}, err
	}
	return u, nil
}

func (s *AccountService) Me(ctx context.Context, p domain.Principal) (domain.User, error) {
	return s.store.GetUser(ctx, p.UserID)
}
