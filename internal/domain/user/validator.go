package user

import (
	"unicode"

	"stockkeeper/internal/domain/apperr"
)

const (
	MinLoginLen    = 3
	MaxLoginLen    = 32
	MinPasswordLen = 8
)

// Validator - проверка учетных данных перед регистрацией и входом
type Validator interface {
	ValidateRegister(login, password string) error
	ValidateLogin(login string) error
	ValidatePassword(password string) error
}

type PasswordValidator struct {
	minLen       int
	requireDigit bool
	requireUpper bool
	requireLower bool
}

func NewPasswordValidator() *PasswordValidator {
	return &PasswordValidator{
		minLen:       MinPasswordLen,
		requireDigit: true,
		requireUpper: true,
		requireLower: true,
	}
}

func (v *PasswordValidator) ValidateRegister(login, password string) error {
	if err := v.ValidateLogin(login); err != nil {
		return err
	}
	return v.ValidatePassword(password)
}

func (v *PasswordValidator) ValidateLogin(login string) error {
	n := len([]rune(login))
	if n < MinLoginLen || n > MaxLoginLen {
		return apperr.Validation("login", "must be %d to %d characters", MinLoginLen, MaxLoginLen)
	}

	for _, r := range login {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '-' && r != '.' {
			return apperr.Validation("login", "may contain only letters, digits, '_', '-', '.'")
		}
	}
	return nil
}

func (v *PasswordValidator) ValidatePassword(password string) error {
	if len([]rune(password)) < v.minLen {
		return apperr.Validation("password", "must be at least %d characters", v.minLen)
	}

	var hasLower, hasUpper, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	switch {
	case v.requireLower && !hasLower:
		return apperr.Validation("password", "must contain a lowercase letter")
	case v.requireUpper && !hasUpper:
		return apperr.Validation("password", "must contain an uppercase letter")
	case v.requireDigit && !hasDigit:
		return apperr.Validation("password", "must contain a digit")
	}
	return nil
}
