package storage

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// CheckPassword reports whether password matches the stored admin hash. A
// missing or unreadable hash never matches.
func (s *Service) CheckPassword(ctx context.Context, password string) (bool, error) {
	var hash string
	found, err := s.readJSON(ctx, KeyAdminHash, &hash)
	if err != nil {
		return false, err
	}
	if !found || hash == "" {
		return false, nil
	}
	err = bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		s.log.WithError(err).Warn("stored admin hash is unusable")
		return false, nil
	}
	return true, nil
}

func (s *Service) SetPassword(ctx context.Context, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.writeJSON(ctx, KeyAdminHash, string(hash))
}

func (s *Service) RecoveryEmail(ctx context.Context) (string, error) {
	var email string
	found, err := s.readJSON(ctx, KeyAdminEmail, &email)
	if err != nil || !found {
		return "", err
	}
	return email, nil
}

func (s *Service) SetRecoveryEmail(ctx context.Context, email string) error {
	return s.writeJSON(ctx, KeyAdminEmail, strings.TrimSpace(email))
}

type resetToken struct {
	Token   string `json:"token"`
	Expires int64  `json:"expires"`
}

const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// unbiasedLimit is the largest multiple of len(tokenAlphabet) below 256.
// Bytes at or above it are discarded so every symbol is equally likely.
const unbiasedLimit = 256 - 256%len(tokenAlphabet)

func randomCode(r io.Reader, length int) (string, error) {
	code := make([]byte, 0, length)
	buf := make([]byte, length)
	for len(code) < length {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= unbiasedLimit {
				continue
			}
			code = append(code, tokenAlphabet[int(b)%len(tokenAlphabet)])
			if len(code) == length {
				break
			}
		}
	}
	return string(code), nil
}

// CreateResetToken stores a new six character code valid for ten minutes,
// replacing any earlier one.
func (s *Service) CreateResetToken(ctx context.Context) (string, error) {
	code, err := randomCode(rand.Reader, resetTokenLength)
	if err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}

	token := resetToken{
		Token:   code,
		Expires: s.now().Add(resetTokenTTL).UnixMilli(),
	}
	if err := s.writeJSON(ctx, KeyResetToken, token); err != nil {
		return "", err
	}
	return token.Token, nil
}

// VerifyResetToken matches input case-insensitively against an unexpired code.
func (s *Service) VerifyResetToken(ctx context.Context, input string) (bool, error) {
	var token resetToken
	found, err := s.readJSON(ctx, KeyResetToken, &token)
	if err != nil || !found {
		return false, err
	}
	if s.now().UnixMilli() > token.Expires {
		return false, nil
	}
	candidate := strings.ToUpper(strings.TrimSpace(input))
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(token.Token)) == 1, nil
}

func (s *Service) ConsumeResetToken(ctx context.Context) error {
	return s.backend.Delete(ctx, KeyResetToken)
}

// SweepExpiredResetToken removes the stored code once it has expired or if
// it can no longer be read.
func (s *Service) SweepExpiredResetToken(ctx context.Context) (bool, error) {
	present, err := s.exists(ctx, KeyResetToken)
	if err != nil || !present {
		return false, err
	}
	var token resetToken
	found, err := s.readJSON(ctx, KeyResetToken, &token)
	if err != nil {
		return false, err
	}
	if found && s.now().UnixMilli() <= token.Expires {
		return false, nil
	}
	return true, s.ConsumeResetToken(ctx)
}
