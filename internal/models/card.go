package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CardStatus is the lifecycle state of a card.
type CardStatus string

const (
	CardStatusActive  CardStatus = "ACTIVE"
	CardStatusBlocked CardStatus = "BLOCKED"
)

// Card represents a bank card. The raw number is stored encrypted; only the
// masked form leaves the service. Balance is a 2-dp decimal and never negative.
type Card struct {
	ID              int64           `json:"id"`
	EncryptedNumber string          `json:"-"` // Not serialized
	MaskedNumber    string          `json:"masked_number"`
	Owner           string          `json:"owner"`
	ExpiryDate      time.Time       `json:"expiry_date"`
	Status          CardStatus      `json:"status"`
	Balance         decimal.Decimal `json:"balance"`
	UserID          int64           `json:"user_id"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
