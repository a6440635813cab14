package utils

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nvoronin/card-ledger/internal/models"
	"github.com/shopspring/decimal"
)

func TestValidateCardNumber(t *testing.T) {
	valid := []string{
		"4111111111111234",
		"4111 1111 1111 1234",
		"41111111 11111234",
	}
	for _, n := range valid {
		if err := ValidateCardNumber(n); err != nil {
			t.Fatalf("ValidateCardNumber(%q) = %v, want nil", n, err)
		}
	}

	invalid := []string{
		"",
		"   ",
		"411111111111123",    // 15 digits
		"41111111111112345",  // 17 digits
		"4111-1111-1111-1234",
		"abcd efgh ijkl mnop",
		"4111  1111 1111 1234", // double space
	}
	for _, n := range invalid {
		if err := ValidateCardNumber(n); !errors.Is(err, models.ErrValidation) {
			t.Fatalf("ValidateCardNumber(%q) = %v, want ErrValidation", n, err)
		}
	}
}

func TestValidateOwner(t *testing.T) {
	if err := ValidateOwner("Jane Doe"); err != nil {
		t.Fatalf("valid owner rejected: %v", err)
	}
	for _, owner := range []string{"", "  ", "J", strings.Repeat("a", 101)} {
		if err := ValidateOwner(owner); !errors.Is(err, models.ErrValidation) {
			t.Fatalf("ValidateOwner(%q) = %v, want ErrValidation", owner, err)
		}
	}
	// Length is checked after trimming.
	if err := ValidateOwner("  Jo  "); err != nil {
		t.Fatalf("trimmed owner rejected: %v", err)
	}
}

func TestValidateFutureDate(t *testing.T) {
	if err := ValidateFutureDate(time.Now().AddDate(1, 0, 0), "expiry date"); err != nil {
		t.Fatalf("future date rejected: %v", err)
	}
	if err := ValidateFutureDate(time.Now().AddDate(-1, 0, 0), "expiry date"); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("past date accepted: %v", err)
	}
	if err := ValidateFutureDate(time.Time{}, "expiry date"); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("zero date accepted: %v", err)
	}
}

func TestValidatePositiveAmount(t *testing.T) {
	if err := ValidatePositiveAmount(decimal.RequireFromString("40.00"), "amount"); err != nil {
		t.Fatalf("valid amount rejected: %v", err)
	}
	for _, raw := range []string{"0", "-1", "0.001"} {
		if err := ValidatePositiveAmount(decimal.RequireFromString(raw), "amount"); !errors.Is(err, models.ErrValidation) {
			t.Fatalf("ValidatePositiveAmount(%s) = %v, want ErrValidation", raw, err)
		}
	}
}

func TestValidateUsername(t *testing.T) {
	if err := ValidateUsername("jane_doe1"); err != nil {
		t.Fatalf("valid username rejected: %v", err)
	}
	for _, username := range []string{"", "ab", strings.Repeat("a", 51), "jane doe", "jane-doe"} {
		if err := ValidateUsername(username); !errors.Is(err, models.ErrValidation) {
			t.Fatalf("ValidateUsername(%q) = %v, want ErrValidation", username, err)
		}
	}
}

func TestMaskCardNumber(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"4111 1111 1111 1234", "**** **** **** 1234"},
		{"4111111111111234", "**** **** **** 1234"},
		{"1234", "**** **** **** 1234"},
		{"123", "****"},
		{"", "****"},
	}
	for _, tc := range cases {
		if got := MaskCardNumber(tc.in); got != tc.want {
			t.Fatalf("MaskCardNumber(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
