package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a record. The lowercase name is what
// appears in index keys and stats output.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// AllStatuses returns every valid status, in a fixed order.
func AllStatuses() []Status {
	return []Status{StatusPending, StatusConfirmed, StatusFailed, StatusCancelled}
}

// ParseStatus converts user input into a Status. Matching is case-insensitive.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(s) {
	case "pending":
		return StatusPending, nil
	case "confirmed":
		return StatusConfirmed, nil
	case "failed":
		return StatusFailed, nil
	case "cancelled":
		return StatusCancelled, nil
	default:
		return "", fmt.Errorf("invalid status %q: must be one of pending, confirmed, failed, cancelled", s)
	}
}

func (s Status) String() string {
	return string(s)
}

// Valid reports whether s is one of the defined statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Record is the indexed entity. The repository owns every mutation; index
// keys are derived from OwnerID, Sequence and Status and never touched
// directly by callers.
type Record struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Sequence    uint64    `json:"sequence"`
	Status      Status    `json:"status"`
	ExternalRef string    `json:"external_ref,omitempty"`
	Amount      string    `json:"amount"`
	FeePrice    uint64    `json:"fee_price"`
	FeeLimit    uint64    `json:"fee_limit"`
	Destination string    `json:"destination"`
	Data        string    `json:"data,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewRecord builds a record with a freshly generated id and status forced to
// pending. CreatedAt and UpdatedAt start equal.
func NewRecord(ownerID string, sequence uint64, destination, amount string, feePrice, feeLimit uint64) *Record {
	now := time.Now().UTC()
	return &Record{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		Sequence:    sequence,
		Status:      StatusPending,
		Amount:      amount,
		FeePrice:    feePrice,
		FeeLimit:    feeLimit,
		Destination: destination,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Clone returns a copy of the record.
func (r *Record) Clone() *Record {
	c := *r
	return &c
}
