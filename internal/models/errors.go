package models

import "errors"

// Sentinel errors for the core taxonomy. Services wrap these with fmt.Errorf
// ("...: %w") to add detail; callers branch with errors.Is.
var (
	// Validation: malformed or out-of-range input.
	ErrValidation   = errors.New("validation failed")
	ErrInvalidInput = errors.New("invalid input")

	// Not found.
	ErrCardNotFound    = errors.New("card not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrRequestNotFound = errors.New("block request not found")

	// Conflicts: business-rule rejections, not retryable as-is.
	ErrOwnershipMismatch = errors.New("cards belong to different users")
	ErrCardNotActive     = errors.New("card is not active")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAlreadyProcessed  = errors.New("request has already been processed")
	ErrDuplicateCard     = errors.New("card with this number already exists")
	ErrDuplicateUser     = errors.New("user with this username already exists")

	// Fatal: startup or cipher failure.
	ErrConfiguration = errors.New("invalid configuration")
	ErrCrypto        = errors.New("crypto operation failed")
)
