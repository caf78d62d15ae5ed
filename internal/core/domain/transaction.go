package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType is the direction of a balance change.
type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal TransactionType = "WITHDRAWAL"
)

// Transaction is an append-only ledger entry paired with one balance change.
type Transaction struct {
	ID        uuid.UUID              `json:"id"`
	WalletID  uuid.UUID              `json:"wallet_id"`
	Amount    int64                  `json:"amount"` // minor units, always positive
	Type      TransactionType        `json:"type"`
	Reference string                 `json:"reference"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// Signed returns the amount with the sign of its effect on the wallet.
func (t *Transaction) Signed() int64 {
	if t.Type == TransactionTypeWithdrawal {
		return -t.Amount
	}
	return t.Amount
}
