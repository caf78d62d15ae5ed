package domain

import (
	"time"
)

// Operation names the mutating call an idempotency key is bound to.
type Operation string

const (
	OperationFund     Operation = "FUND"
	OperationTransfer Operation = "TRANSFER"
)

// IdempotencyStatus tracks a key through PENDING -> COMPLETED.
type IdempotencyStatus string

const (
	IdempotencyStatusPending   IdempotencyStatus = "PENDING"
	IdempotencyStatusCompleted IdempotencyStatus = "COMPLETED"
)

// IdempotencyRecord binds a client key to one operation, its request hash
// and, once completed, the serialized result.
type IdempotencyRecord struct {
	Key         string            `json:"key"`
	Operation   Operation         `json:"operation"`
	RequestHash string            `json:"request_hash"`
	Status      IdempotencyStatus `json:"status"`
	Response    []byte            `json:"response,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

// IsCompleted returns true once a result has been recorded.
func (r *IdempotencyRecord) IsCompleted() bool {
	return r.Status == IdempotencyStatusCompleted
}

// Matches reports whether the record was created for the same request.
func (r *IdempotencyRecord) Matches(op Operation, requestHash string) bool {
	return r.Operation == op && r.RequestHash == requestHash
}
