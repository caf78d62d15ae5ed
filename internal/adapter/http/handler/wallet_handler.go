package handler

import (
	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/adapter/http/middleware"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WalletHandler handles wallet and ledger endpoints.
type WalletHandler struct {
	ledger ports.LedgerService
	query  ports.QueryService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(ledger ports.LedgerService, query ports.QueryService) *WalletHandler {
	return &WalletHandler{
		ledger: ledger,
		query:  query,
	}
}

// CreateWallet handles POST /api/v1/wallets.
func (h *WalletHandler) CreateWallet(c *gin.Context) {
	var req dto.CreateWalletRequest
	// An empty body selects the default currency.
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, apperror.Validation(dto.BindingMessage(err)))
			return
		}
	}
	dto.SanitizeStruct(&req)

	wallet, err := h.ledger.CreateWallet(c.Request.Context(), req.Currency)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.NewWalletResponse(wallet))
}

// GetWallet handles GET /api/v1/wallets/:id.
func (h *WalletHandler) GetWallet(c *gin.Context) {
	id, ok := walletIDParam(c)
	if !ok {
		return
	}

	wallet, err := h.ledger.GetWallet(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewWalletResponse(wallet))
}

// Fund handles POST /api/v1/wallets/fund.
func (h *WalletHandler) Fund(c *gin.Context) {
	key, ok := idempotencyKey(c)
	if !ok {
		return
	}

	var req dto.FundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(dto.BindingMessage(err)))
		return
	}

	result, err := h.ledger.Fund(c.Request.Context(), ports.FundRequest{
		WalletID:       uuid.MustParse(req.WalletID),
		Amount:         *req.Amount,
		IdempotencyKey: key,
		Metadata:       req.Metadata,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.NewFundResponse(result))
}

// Transfer handles POST /api/v1/wallets/transfer.
func (h *WalletHandler) Transfer(c *gin.Context) {
	key, ok := idempotencyKey(c)
	if !ok {
		return
	}

	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(dto.BindingMessage(err)))
		return
	}

	result, err := h.ledger.Transfer(c.Request.Context(), ports.TransferRequest{
		FromID:         uuid.MustParse(req.From),
		ToID:           uuid.MustParse(req.To),
		Amount:         *req.Amount,
		IdempotencyKey: key,
		Metadata:       req.Metadata,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.NewTransferResponse(result))
}

// ListTransactions handles GET /api/v1/wallets/:id/transactions.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	id, ok := walletIDParam(c)
	if !ok {
		return
	}

	var q dto.ListTransactionsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.Validation(dto.BindingMessage(err)))
		return
	}

	txns, meta, err := h.query.ListTransactions(c.Request.Context(), id, q.Page, q.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, dto.NewTransactionList(txns), meta)
}

func walletIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("wallet id must be a valid UUID"))
		return uuid.Nil, false
	}
	return id, true
}

// idempotencyKey reads the optional Idempotency-Key header.
func idempotencyKey(c *gin.Context) (string, bool) {
	key := c.GetHeader(middleware.HeaderIdempotencyKey)
	if key == "" {
		return "", true
	}
	if !dto.ValidIdempotencyKey(key) {
		response.Error(c, apperror.Validation("Idempotency-Key must be at most 255 characters of [A-Za-z0-9_.:-]"))
		return "", false
	}
	return key, true
}
