package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pettycash/internal/models"
	"pettycash/internal/service"
)

type CashbookHandler struct {
	cashbook *service.CashbookService
	repair   *service.RepairService
	logger   *zap.Logger
}

func NewCashbookHandler(cashbook *service.CashbookService, repair *service.RepairService, logger *zap.Logger) *CashbookHandler {
	return &CashbookHandler{
		cashbook: cashbook,
		repair:   repair,
		logger:   logger,
	}
}

func (h *CashbookHandler) ListEntries(c *gin.Context) {
	afterSeq, _ := strconv.ParseInt(c.DefaultQuery("after_seq", "0"), 10, 64)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	entries, err := h.cashbook.List(c.Request.Context(), afterSeq, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (h *CashbookHandler) Balance(c *gin.Context) {
	balance, err := h.cashbook.Balance(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

// Verify recomputes the running balance over the whole ledger. An
// inconsistent ledger is an operator problem: report it, change nothing.
func (h *CashbookHandler) Verify(c *gin.Context) {
	report, err := h.cashbook.Verify(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if !report.Consistent {
		c.JSON(http.StatusInternalServerError, report)
		return
	}
	c.JSON(http.StatusOK, report)
}

// PostOpening seeds an empty ledger or records a period opening balance.
func (h *CashbookHandler) PostOpening(c *gin.Context) {
	var req models.PostEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.EntryType = models.EntryTypeOpeningBalance

	entry, err := h.cashbook.Post(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (h *CashbookHandler) PostAdjustment(c *gin.Context) {
	var req models.PostEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, err := h.cashbook.PostAdjustment(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// Repair triggers a backfill run; also exposed as the cmd/repair batch
// binary.
func (h *CashbookHandler) Repair(c *gin.Context) {
	report, err := h.repair.Run(c.Request.Context())
	if err != nil {
		h.logger.Error("repair run failed", zap.Error(err))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
