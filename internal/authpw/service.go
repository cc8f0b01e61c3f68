// Package authpw implements the single admin credential: sign-in, password
// change, and the emailed reset-code flow.
package authpw

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"sopdesk/api/internal/auth"
)

var (
	ErrInvalidCredentials = errors.New("invalid password")
	ErrInvalidResetToken  = errors.New("invalid or expired reset code")
	ErrNoRecoveryEmail    = errors.New("no recovery email configured")
	ErrEmptyPassword      = errors.New("password is required")
	ErrMailNotConfigured  = errors.New("mail server not configured")
)

// CredentialStore is the slice of the knowledge-base store holding the
// admin credential.
type CredentialStore interface {
	CheckPassword(ctx context.Context, password string) (bool, error)
	SetPassword(ctx context.Context, password string) error
	RecoveryEmail(ctx context.Context) (string, error)
	CreateResetToken(ctx context.Context) (string, error)
	VerifyResetToken(ctx context.Context, input string) (bool, error)
	ConsumeResetToken(ctx context.Context) error
}

type Mailer interface {
	IsConfigured() bool
	SendResetCode(to, appName, code string, ttl time.Duration) error
}

// Revoker remembers signed-out tokens until they expire.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type Config struct {
	TokenSecret string
	AccessTTL   time.Duration
	ResetTTL    time.Duration
	AppName     string
	// DevBypass returns reset codes to the caller when no mail server is
	// configured. Anyone who can reach the API can then reset the password.
	DevBypass bool
}

// Service provides admin authentication
type Service struct {
	store   CredentialStore
	mailer  Mailer
	revoker Revoker
	cfg     Config
	now     func() time.Time
	log     logrus.FieldLogger
}

func NewService(store CredentialStore, mailer Mailer, revoker Revoker, cfg Config, log logrus.FieldLogger) *Service {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 8 * time.Hour
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = 10 * time.Minute
	}
	if cfg.AppName == "" {
		cfg.AppName = "Knowledge Base"
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{store: store, mailer: mailer, revoker: revoker, cfg: cfg, now: time.Now, log: log}
}

// SignInResponse contains sign-in result
type SignInResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SignIn exchanges the admin password for a bearer token. There is no lockout.
func (s *Service) SignIn(ctx context.Context, password string) (*SignInResponse, error) {
	if password == "" {
		return nil, ErrInvalidCredentials
	}
	ok, err := s.store.CheckPassword(ctx, password)
	if err != nil {
		return nil, fmt.Errorf("check password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	claims := auth.NewAdminClaims(s.now(), s.cfg.AccessTTL)
	token, err := auth.IssueToken([]byte(s.cfg.TokenSecret), claims)
	if err != nil {
		return nil, err
	}
	return &SignInResponse{Token: token, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Authenticate validates a bearer token and checks it has not been revoked.
func (s *Service) Authenticate(ctx context.Context, token string) (auth.Claims, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.TokenSecret), token)
	if err != nil {
		return auth.Claims{}, err
	}
	revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return auth.Claims{}, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return auth.Claims{}, auth.ErrInvalidToken
	}
	return claims, nil
}

// SignOut revokes token. Tokens that no longer parse are already unusable.
func (s *Service) SignOut(ctx context.Context, token string) error {
	claims, err := auth.ParseToken([]byte(s.cfg.TokenSecret), token)
	if err != nil {
		return nil
	}
	return s.revoker.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}

// ChangePassword replaces the admin password. The caller is already signed in.
func (s *Service) ChangePassword(ctx context.Context, newPassword string) error {
	if strings.TrimSpace(newPassword) == "" {
		return ErrEmptyPassword
	}
	if err := s.store.SetPassword(ctx, newPassword); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// ResetRequest is the outcome of requesting a reset code. DevCode is only set
// when no mail server is configured and DevBypass is on.
type ResetRequest struct {
	SentTo  string `json:"sentTo"`
	DevCode string `json:"devCode,omitempty"`
}

func (s *Service) RequestPasswordReset(ctx context.Context) (*ResetRequest, error) {
	to, err := s.store.RecoveryEmail(ctx)
	if err != nil {
		return nil, fmt.Errorf("load recovery email: %w", err)
	}
	if to == "" {
		return nil, ErrNoRecoveryEmail
	}
	mailReady := s.mailer != nil && s.mailer.IsConfigured()
	if !mailReady && !s.cfg.DevBypass {
		return nil, ErrMailNotConfigured
	}
	code, err := s.store.CreateResetToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("create reset code: %w", err)
	}

	if !mailReady {
		s.log.WithFields(logrus.Fields{"recovery_email": to, "reset_code": code}).Warn("smtp not configured, reset dev bypass returning code")
		return &ResetRequest{SentTo: to, DevCode: code}, nil
	}
	if err := s.mailer.SendResetCode(to, s.cfg.AppName, code, s.cfg.ResetTTL); err != nil {
		return nil, fmt.Errorf("send reset code: %w", err)
	}
	return &ResetRequest{SentTo: to}, nil
}

// ResetPassword sets a new password with a valid reset code and consumes it.
func (s *Service) ResetPassword(ctx context.Context, code, newPassword string) error {
	if strings.TrimSpace(newPassword) == "" {
		return ErrEmptyPassword
	}
	ok, err := s.store.VerifyResetToken(ctx, code)
	if err != nil {
		return fmt.Errorf("verify reset code: %w", err)
	}
	if !ok {
		return ErrInvalidResetToken
	}
	if err := s.store.SetPassword(ctx, newPassword); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if err := s.store.ConsumeResetToken(ctx); err != nil {
		s.log.WithError(err).Warn("consume reset code")
	}
	return nil
}
