package utils

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/nvoronin/card-ledger/internal/models"
	"github.com/shopspring/decimal"
)

var (
	cardNumberPattern = regexp.MustCompile(`^\d{4}\s?\d{4}\s?\d{4}\s?\d{4}$`)
	usernamePattern   = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	nonDigitPattern   = regexp.MustCompile(`\D`)
)

// ValidateCardNumber checks that a raw card number is 16 digits with optional
// space separators.
func ValidateCardNumber(cardNumber string) error {
	if strings.TrimSpace(cardNumber) == "" {
		return fmt.Errorf("%w: card number cannot be empty", models.ErrValidation)
	}
	if !cardNumberPattern.MatchString(cardNumber) {
		return fmt.Errorf("%w: card number must be 16 digits with optional spaces", models.ErrValidation)
	}
	return nil
}

// ValidateOwner checks the cardholder name: non-blank, 2-100 characters after
// trimming.
func ValidateOwner(owner string) error {
	trimmed := strings.TrimSpace(owner)
	if trimmed == "" {
		return fmt.Errorf("%w: owner cannot be empty", models.ErrValidation)
	}
	if len(trimmed) < 2 || len(trimmed) > 100 {
		return fmt.Errorf("%w: owner must be between 2 and 100 characters", models.ErrValidation)
	}
	return nil
}

// ValidateFutureDate checks that a date lies strictly in the future.
func ValidateFutureDate(date time.Time, fieldName string) error {
	if date.IsZero() {
		return fmt.Errorf("%w: %s is required", models.ErrValidation, fieldName)
	}
	if !date.After(time.Now()) {
		return fmt.Errorf("%w: %s must be in the future", models.ErrValidation, fieldName)
	}
	return nil
}

// ValidatePositiveAmount checks that a money amount is positive with at most
// two fraction digits.
func ValidatePositiveAmount(amount decimal.Decimal, fieldName string) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: %s must be greater than zero", models.ErrValidation, fieldName)
	}
	if amount.Exponent() < -2 {
		return fmt.Errorf("%w: %s must have at most 2 fraction digits", models.ErrValidation, fieldName)
	}
	return nil
}

// ValidateUsername checks username format: 3-50 characters, letters, digits
// and underscores only.
func ValidateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return fmt.Errorf("%w: username cannot be empty", models.ErrValidation)
	}
	if len(username) < 3 || len(username) > 50 {
		return fmt.Errorf("%w: username must be between 3 and 50 characters", models.ErrValidation)
	}
	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("%w: username can only contain letters, numbers, and underscores", models.ErrValidation)
	}
	return nil
}

// ValidatePassword checks the minimum password length.
func ValidatePassword(password string) error {
	if len(password) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters long", models.ErrValidation)
	}
	return nil
}

// MaskCardNumber masks a card number, leaving only the last 4 digits visible.
// Numbers with fewer than 4 digits collapse to "****".
func MaskCardNumber(cardNumber string) string {
	digitsOnly := nonDigitPattern.ReplaceAllString(cardNumber, "")
	if len(digitsOnly) < 4 {
		return "****"
	}
	return "**** **** **** " + digitsOnly[len(digitsOnly)-4:]
}
