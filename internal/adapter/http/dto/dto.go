package dto

import (
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/pkg/money"
)

// CreateWalletRequest is the request body for wallet creation.
type CreateWalletRequest struct {
	Currency string `json:"currency" binding:"omitempty,currency_code"`
}

// FundRequest is the request body for funding a wallet.
// Amount is a pointer so that zero and negative values reach the ledger
// and fail with its own error code.
type FundRequest struct {
	WalletID string                 `json:"wallet_id" binding:"required,uuid"`
	Amount   *int64                 `json:"amount" binding:"required"`
	Metadata map[string]interface{} `json:"metadata,omitempty" binding:"omitempty,max=32"`
}

// TransferRequest is the request body for a wallet-to-wallet transfer.
type TransferRequest struct {
	From     string                 `json:"from" binding:"required,uuid"`
	To       string                 `json:"to" binding:"required,uuid"`
	Amount   *int64                 `json:"amount" binding:"required"`
	Metadata map[string]interface{} `json:"metadata,omitempty" binding:"omitempty,max=32"`
}

// ListTransactionsQuery holds the query string of the history endpoint.
type ListTransactionsQuery struct {
	Page  int `form:"page" binding:"omitempty,min=0"`
	Limit int `form:"limit" binding:"omitempty,min=0"`
}

// WalletResponse is the JSON representation of a wallet.
type WalletResponse struct {
	ID               string `json:"id"`
	Currency         string `json:"currency"`
	Balance          int64  `json:"balance"`
	BalanceFormatted string `json:"balance_formatted"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

// TransactionResponse is the JSON representation of a ledger entry.
type TransactionResponse struct {
	ID        string                 `json:"id"`
	WalletID  string                 `json:"wallet_id"`
	Amount    int64                  `json:"amount"`
	Type      string                 `json:"type"`
	Reference string                 `json:"reference"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt string                 `json:"created_at"`
}

// FundResponse is the response body of a fund operation.
type FundResponse struct {
	Wallet      WalletResponse      `json:"wallet"`
	Transaction TransactionResponse `json:"transaction"`
}

// TransferResponse is the response body of a transfer.
type TransferResponse struct {
	From   WalletResponse      `json:"from"`
	To     WalletResponse      `json:"to"`
	Debit  TransactionResponse `json:"debit"`
	Credit TransactionResponse `json:"credit"`
}

func NewWalletResponse(w *domain.Wallet) WalletResponse {
	return WalletResponse{
		ID:               w.ID.String(),
		Currency:         string(w.Currency),
		Balance:          w.Balance,
		BalanceFormatted: money.Format(w.Balance, string(w.Currency)),
		CreatedAt:        w.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:        w.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func NewTransactionResponse(t *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:        t.ID.String(),
		WalletID:  t.WalletID.String(),
		Amount:    t.Amount,
		Type:      string(t.Type),
		Reference: t.Reference,
		Metadata:  t.Metadata,
		CreatedAt: t.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func NewTransactionList(txns []domain.Transaction) []TransactionResponse {
	items := make([]TransactionResponse, 0, len(txns))
	for i := range txns {
		items = append(items, NewTransactionResponse(&txns[i]))
	}
	return items
}

func NewFundResponse(r *domain.FundResult) FundResponse {
	return FundResponse{
		Wallet:      NewWalletResponse(r.Wallet),
		Transaction: NewTransactionResponse(r.Transaction),
	}
}

func NewTransferResponse(r *domain.TransferResult) TransferResponse {
	return TransferResponse{
		From:   NewWalletResponse(r.From),
		To:     NewWalletResponse(r.To),
		Debit:  NewTransactionResponse(r.Debit),
		Credit: NewTransactionResponse(r.Credit),
	}
}
