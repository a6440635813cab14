package models

import "time"

// OperationType classifies a card lifecycle transition.
type OperationType string

const (
	OperationCreate   OperationType = "CREATE"
	OperationBlock    OperationType = "BLOCK"
	OperationActivate OperationType = "ACTIVATE"
	OperationDelete   OperationType = "DELETE"
)

// CardOperationHistory is one append-only audit record per lifecycle
// transition. PerformedBy is nil for system-initiated operations,
// PreviousStatus is nil for CREATE and NewStatus is nil for DELETE.
type CardOperationHistory struct {
	ID             int64         `json:"id"`
	CardID         int64         `json:"card_id"`
	OperationType  OperationType `json:"operation_type"`
	PerformedBy    *int64        `json:"performed_by,omitempty"`
	PreviousStatus *CardStatus   `json:"previous_status,omitempty"`
	NewStatus      *CardStatus   `json:"new_status,omitempty"`
	Comment        string        `json:"comment,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}
