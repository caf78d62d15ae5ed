package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// Code returns the error code carried by err, or "" when err is not an AppError.
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// HasCode reports whether err is an AppError with the given code.
func HasCode(err error, code string) bool {
	return err != nil && Code(err) == code
}

const (
	CodeWalletNotFound    = "WAL_001"
	CodeInsufficientFunds = "WAL_002"
	CodeInvalidAmount     = "WAL_003"
	CodeInvalidTransfer   = "WAL_004"
	CodeInvalidCurrency   = "WAL_005"
	CodeCurrencyMismatch  = "WAL_006"
	CodeKeyReused         = "IDEM_001"
	CodeOperationInFlight = "IDEM_002"
	CodeValidation        = "REQ_001"
	CodeRateLimitExceeded = "RATE_001"
	CodeInternal          = "SYS_001"
	CodeStoreUnavailable  = "SYS_002"
)

// ---- Ledger (WAL) ----

func ErrWalletNotFound(walletID string) *AppError {
	return New(CodeWalletNotFound, fmt.Sprintf("Wallet %s not found", walletID), http.StatusNotFound)
}

func ErrInsufficientFunds() *AppError {
	return New(CodeInsufficientFunds, "Insufficient funds in the source wallet", http.StatusPaymentRequired)
}

func ErrInvalidAmount() *AppError {
	return New(CodeInvalidAmount, "Amount must be a positive number of minor units", http.StatusBadRequest)
}

func ErrInvalidTransfer() *AppError {
	return New(CodeInvalidTransfer, "Source and destination wallets must be different", http.StatusBadRequest)
}

func ErrInvalidCurrency(currency string) *AppError {
	return New(CodeInvalidCurrency, fmt.Sprintf("Unsupported currency %q", currency), http.StatusBadRequest)
}

func ErrCurrencyMismatch() *AppError {
	return New(CodeCurrencyMismatch, "Source and destination wallets hold different currencies", http.StatusBadRequest)
}

// ---- Idempotency (IDEM) ----

func ErrKeyReusedWithDifferentPayload() *AppError {
	return New(CodeKeyReused, "Idempotency key reused with a different request", http.StatusUnprocessableEntity)
}

func ErrOperationInProgress() *AppError {
	return New(CodeOperationInFlight, "Operation with this idempotency key is in progress", http.StatusConflict)
}

// ---- Request (REQ) ----

// Validation returns a request validation error.
func Validation(message string) *AppError {
	return New(CodeValidation, message, http.StatusBadRequest)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New(CodeRateLimitExceeded, "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap(CodeInternal, "Internal server error", http.StatusInternalServerError, err)
}

// ErrStoreUnavailable reports a transient failure to reach the ledger store.
func ErrStoreUnavailable(err error) *AppError {
	return Wrap(CodeStoreUnavailable, "Ledger store unavailable", http.StatusServiceUnavailable, err)
}
