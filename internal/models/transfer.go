package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transfer is a receipt for an already-applied money movement between two
// cards of the same user. Immutable once created.
type Transfer struct {
	ID         int64           `json:"id"`
	FromCardID int64           `json:"from_card_id"`
	ToCardID   int64           `json:"to_card_id"`
	Amount     decimal.Decimal `json:"amount"`
	Timestamp  time.Time       `json:"timestamp"`
}
