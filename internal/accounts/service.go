// Package accounts implements signup, login, logout, email verification and
// account deletion on top of the document store.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/luminosity-leds/luminosity/internal/apperr"
	"github.com/luminosity-leds/luminosity/internal/auth"
	"github.com/luminosity-leds/luminosity/internal/crypto"
	"github.com/luminosity-leds/luminosity/internal/mailer"
	"github.com/luminosity-leds/luminosity/internal/models"
	"github.com/luminosity-leds/luminosity/internal/store"
)

// MinPasswordLength is the shortest password signup accepts.
const MinPasswordLength = 8

// DefaultVerifyTokenTTL is how long a verification link stays valid.
const DefaultVerifyTokenTTL = time.Hour

var (
	errBadCredentials = apperr.Unauthorized("Invalid email or password")
	errInvalidToken   = apperr.Invalid("Invalid token")
)

// Store is the subset of the document store the service needs.
type Store interface {
	CreateAccount(a *models.Account) error
	AccountByID(id string) (*models.Account, error)
	AccountByEmail(email string) (*models.Account, error)
	AccountByVerifyToken(token string) (*models.Account, error)
	UpdateAccount(id string, fn func(a *models.Account) error) (*models.Account, error)
	DeleteAccount(id string) ([]string, error)
}

// Forgetter drops per-device state kept outside the store.
type Forgetter interface {
	Forget(deviceUUID string)
}

type Options struct {
	BcryptCost     int
	VerifyTokenTTL time.Duration
	// BaseURL prefixes the link in verification emails.
	BaseURL string
}

type Service struct {
	store   Store
	issuer  *auth.Issuer
	revoker auth.Revoker
	mail    mailer.Mailer
	devices Forgetter
	logger  *zap.Logger
	opts    Options
	now     func() time.Time
}

// NewService wires the account operations. revoker and devices may be nil.
func NewService(s Store, iss *auth.Issuer, rev auth.Revoker, m mailer.Mailer, devices Forgetter, logger *zap.Logger, opts Options) *Service {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = auth.DefaultCost
	}
	if opts.VerifyTokenTTL <= 0 {
		opts.VerifyTokenTTL = DefaultVerifyTokenTTL
	}
	return &Service{
		store:   s,
		issuer:  iss,
		revoker: rev,
		mail:    m,
		devices: devices,
		logger:  logger,
		opts:    opts,
		now:     time.Now,
	}
}

// SignupInput is the signup form.
type SignupInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in SignupInput) validate() error {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return apperr.Invalid("Name, email and password are required")
	}
	if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != strings.TrimSpace(in.Email) {
		return apperr.Invalid("Invalid email address")
	}
	if len(in.Password) < MinPasswordLength {
		return apperr.Invalid(fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
	}
	return nil
}

// Signup creates an unverified account and mails a verification link.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*models.Account, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(in.Password, s.opts.BcryptCost)
	if err != nil {
		if auth.IsHashError(err) {
			return nil, apperr.Invalid("Password is too long")
		}
		return nil, apperr.Internal(fmt.Errorf("hash password: %w", err))
	}
	token, err := crypto.RandomToken(32)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("verify token: %w", err))
	}

	now := s.now().UTC()
	a := &models.Account{
		ID:                uuid.NewString(),
		Name:              strings.TrimSpace(in.Name),
		Email:             strings.TrimSpace(in.Email),
		Password:          hash,
		VerifyToken:       token,
		VerifyTokenExpiry: now.Add(s.opts.VerifyTokenTTL),
		CreationDate:      now,
		LastUpdated:       now,
		Notifications:     []string{},
		DevicesLinked:     []string{},
	}
	if err := s.store.CreateAccount(a); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("User already exists")
		}
		return nil, apperr.Internal(err)
	}

	link := s.verifyLink(token)
	if err := s.mail.Send(ctx, mailer.Verification(a.Email, a.Name, link, s.opts.VerifyTokenTTL)); err != nil {
		s.logger.Warn("verification mail not sent", zap.String("account", a.ID), zap.Error(err))
	}
	s.logger.Info("account created", zap.String("account", a.ID))
	return a, nil
}

func (s *Service) verifyLink(token string) string {
	return strings.TrimRight(s.opts.BaseURL, "/") + "/verifyemail?token=" + url.QueryEscape(token)
}

// Session is a successful login.
type Session struct {
	Account *models.Account
	Token   string
	Expires time.Time
}

// Login checks the credentials and issues a session token. Unknown emails
// and wrong passwords fail the same way.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, apperr.Invalid("Email and password are required")
	}
	a, err := s.store.AccountByEmail(email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errBadCredentials
		}
		return nil, apperr.Internal(err)
	}
	if !auth.CheckPassword(password, a.Password) {
		s.logger.Debug("login rejected", zap.String("account", a.ID))
		return nil, errBadCredentials
	}

	token, claims, err := s.issuer.Issue(a)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	now := s.now().UTC()
	a, err = s.store.UpdateAccount(a.ID, func(cur *models.Account) error {
		cur.LastUpdated = now
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errBadCredentials
		}
		return nil, apperr.Internal(err)
	}
	return &Session{Account: a, Token: token, Expires: claims.Expiry()}, nil
}

// Logout revokes the session token until it would have expired.
func (s *Service) Logout(ctx context.Context, c *auth.Claims) error {
	if s.revoker == nil || c == nil || c.ID == "" {
		return nil
	}
	if err := s.revoker.Revoke(ctx, c.ID, c.Expiry()); err != nil {
		return apperr.Internal(fmt.Errorf("revoke token: %w", err))
	}
	return nil
}

// Me returns the account behind the session.
func (s *Service) Me(_ context.Context, id string) (*models.Account, error) {
	a, err := s.store.AccountByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Wrap(err, apperr.CodeNotFound, "User not found")
		}
		return nil, apperr.Internal(err)
	}
	return a, nil
}

// VerifyEmail marks the account holding token as verified.
func (s *Service) VerifyEmail(_ context.Context, token string) (*models.Account, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errInvalidToken
	}
	a, err := s.store.AccountByVerifyToken(token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Wrap(err, apperr.CodeInvalidInput, "Invalid token")
		}
		return nil, apperr.Internal(err)
	}
	now := s.now().UTC()
	a, err = s.store.UpdateAccount(a.ID, func(cur *models.Account) error {
		// the token may have been redeemed since the lookup
		if cur.VerifyToken != token || !now.Before(cur.VerifyTokenExpiry) {
			return errInvalidToken
		}
		cur.IsVerified = true
		cur.VerifyToken = ""
		cur.VerifyTokenExpiry = time.Time{}
		cur.LastUpdated = now
		return nil
	})
	if err != nil {
		if errors.Is(err, errInvalidToken) || errors.Is(err, store.ErrNotFound) {
			return nil, errInvalidToken
		}
		return nil, apperr.Internal(err)
	}
	s.logger.Info("email verified", zap.String("account", a.ID))
	return a, nil
}

// Delete removes the account and every device it owns.
func (s *Service) Delete(_ context.Context, id string) error {
	removed, err := s.store.DeleteAccount(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.Wrap(err, apperr.CodeNotFound, "User not found")
		}
		return apperr.Internal(err)
	}
	if s.devices != nil {
		for _, u := range removed {
			s.devices.Forget(u)
		}
	}
	s.logger.Info("account deleted", zap.String("account", id), zap.Int("devices", len(removed)))
	return nil
}
