package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pse-app/pse-sub001/internal/apperrors"
	portssvc "github.com/pse-app/pse-sub001/internal/core/ports/services"
	"github.com/pse-app/pse-sub001/internal/dto"
	"github.com/pse-app/pse-sub001/internal/middleware"
)

// ledgerHandler handles HTTP requests for transactions and balances.
type ledgerHandler struct {
	ledgerService portssvc.LedgerSvcFacade
}

// newLedgerHandler creates a new ledgerHandler.
func newLedgerHandler(ls portssvc.LedgerSvcFacade) *ledgerHandler {
	return &ledgerHandler{
		ledgerService: ls,
	}
}

// RegisterLedgerRoutes registers the ledger routes on rg.
func RegisterLedgerRoutes(rg *gin.RouterGroup, ledgerService portssvc.LedgerSvcFacade) error {
	if err := dto.RegisterValidations(); err != nil {
		return err
	}
	h := newLedgerHandler(ledgerService)

	rg.GET("/groups/:groupID/transactions", h.getTransactions)
	rg.POST("/transactions", h.postTransactions)
	rg.GET("/balances", h.getBalances)
	return nil
}

// getTransactions godoc
// @Summary List the transactions of a group
// @Description Returns every transaction of a group ordered by timestamp, ties in insertion order
// @Tags transactions
// @Produce  json
// @Param   groupID path string true "Group ID"
// @Success 200 {object} dto.ListTransactionsResponse
// @Failure 404 {object} map[string]string "Group not found"
// @Failure 429 {object} map[string]string "Too many requests"
// @Failure 500 {object} map[string]string "Failed to retrieve transactions"
// @Router /groups/{groupID}/transactions [get]
func (h *ledgerHandler) getTransactions(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	groupID := c.Param("groupID")

	logger = logger.With(slog.String("group_id", groupID))
	logger.Info("Received request to list transactions")

	txns, err := h.ledgerService.GetTransactions(c.Request.Context(), groupID)
	if err != nil {
		writeServiceError(c, logger, err, "Failed to retrieve transactions")
		return
	}

	logger.Info("Transactions retrieved successfully", slog.Int("count", len(txns)))
	c.JSON(http.StatusOK, dto.ToListTransactionsResponse(txns))
}

// postTransactions godoc
// @Summary Post a batch of transactions
// @Description Validates and commits a batch atomically. Either every transaction is stored or none is.
// @Tags transactions
// @Accept  json
// @Produce  json
// @Param   batch body dto.PostTransactionsRequest true "Transactions to post"
// @Success 201 {object} dto.PostTransactionsResponse
// @Failure 400 {object} map[string]string "Invalid input format or validation error"
// @Failure 404 {object} map[string]string "Unknown user or group, or user not a member"
// @Failure 429 {object} map[string]string "Too many requests"
// @Failure 500 {object} map[string]string "Failed to post transactions"
// @Router /transactions [post]
func (h *ledgerHandler) postTransactions(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.PostTransactionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for PostTransactions", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	txns, err := dto.ToDomainTransactions(req.Transactions)
	if err != nil {
		logger.Warn("Invalid transaction in batch", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	logger.Info("Received request to post transactions", slog.Int("batch_size", len(txns)))

	if err := h.ledgerService.PostTransactions(c.Request.Context(), txns); err != nil {
		writeServiceError(c, logger, err, "Failed to post transactions")
		return
	}

	c.JSON(http.StatusCreated, dto.PostTransactionsResponse{Posted: len(txns)})
}

// getBalances godoc
// @Summary Get balances
// @Description Returns the balance of every membership among the given users and groups
// @Tags balances
// @Produce  json
// @Param   user query []string false "User IDs" collectionFormat(multi)
// @Param   group query []string false "Group IDs" collectionFormat(multi)
// @Success 200 {object} dto.BalancesResponse
// @Failure 404 {object} map[string]string "Unknown user or group"
// @Failure 429 {object} map[string]string "Too many requests"
// @Failure 500 {object} map[string]string "Failed to retrieve balances"
// @Router /balances [get]
func (h *ledgerHandler) getBalances(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userIDs := c.QueryArray("user")
	groupIDs := c.QueryArray("group")

	logger.Info("Received request to get balances",
		slog.Int("user_count", len(userIDs)),
		slog.Int("group_count", len(groupIDs)))

	balances, err := h.ledgerService.GetBalances(c.Request.Context(), userIDs, groupIDs)
	if err != nil {
		writeServiceError(c, logger, err, "Failed to retrieve balances")
		return
	}

	c.JSON(http.StatusOK, dto.ToBalancesResponse(balances))
}

// writeServiceError maps service errors onto status codes. Internal errors get a generic message.
func writeServiceError(c *gin.Context, logger *slog.Logger, err error, msg string) {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		logger.Warn("Validation error", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrNotFound):
		logger.Warn("Referenced entity not found", slog.String("error", err.Error()))
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		logger.Error(msg, slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}
