package models

import "time"

// BlockRequestStatus is the processing state of a card block request.
type BlockRequestStatus string

const (
	BlockRequestPending  BlockRequestStatus = "PENDING"
	BlockRequestApproved BlockRequestStatus = "APPROVED"
	BlockRequestRejected BlockRequestStatus = "REJECTED"
)

// CardBlockRequest is a customer-initiated, administrator-adjudicated request
// to block a card. It transitions out of PENDING exactly once and is never
// deleted.
type CardBlockRequest struct {
	ID           int64              `json:"id"`
	CardID       int64              `json:"card_id"`
	RequesterID  int64              `json:"requester_id"`
	Reason       string             `json:"reason"`
	Status       BlockRequestStatus `json:"status"`
	AdminID      *int64             `json:"admin_id,omitempty"`
	AdminComment string             `json:"admin_comment,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	ProcessedAt  *time.Time         `json:"processed_at,omitempty"`
}
