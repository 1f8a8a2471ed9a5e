// Package auth provides minimal authentication helpers for transfer sessions.
//
// It intentionally avoids policy decisions and storage concerns.
package auth

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrUnauthorized = errors.New("auth: unauthorized")

// Validator validates an authentication token.
type Validator interface {
	Validate(token string) error
}

// StaticToken compares against a single shared plaintext token in constant
// time. Intended for development and small deployments.
type StaticToken struct {
	Token string
}

func (s StaticToken) Validate(token string) error {
	if s.Token == "" {
		return ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(s.Token), []byte(token)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

// HashedToken validates against a bcrypt hash so the configuration file never
// holds the token itself.
type HashedToken struct {
	Hash string
}

func (h HashedToken) Validate(token string) error {
	if h.Hash == "" {
		return ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(h.Hash), []byte(token)); err != nil {
		return ErrUnauthorized
	}
	return nil
}

// FuncValidator adapts a function into a Validator.
type FuncValidator func(token string) error

func (f FuncValidator) Validate(token string) error {
	return f(token)
}

// FromConfig picks the validator matching the configured secret. A nil return
// means authentication is disabled.
func FromConfig(secret string, hashed bool) Validator {
	if secret == "" {
		return nil
	}
	if hashed {
		return HashedToken{Hash: secret}
	}
	return StaticToken{Token: secret}
}
