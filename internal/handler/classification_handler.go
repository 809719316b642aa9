package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pettycash/internal/models"
	"pettycash/internal/service"
)

type ClassificationHandler struct {
	cascade  *service.CascadeService
	memory   *service.MemoryMatcher
	accounts service.AccountStore
	logger   *zap.Logger
}

func NewClassificationHandler(cascade *service.CascadeService, memory *service.MemoryMatcher, accounts service.AccountStore, logger *zap.Logger) *ClassificationHandler {
	return &ClassificationHandler{
		cascade:  cascade,
		memory:   memory,
		accounts: accounts,
		logger:   logger,
	}
}

// Suggest runs the cascade for an ad-hoc description.
func (h *ClassificationHandler) Suggest(c *gin.Context) {
	var req models.ClassificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.cascade.Classify(c.Request.Context(), &req)
	if err != nil {
		h.logger.Warn("classification failed", zap.String("description", req.Description), zap.Error(err))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Confirm feeds a human-confirmed decision back into the memory store.
func (h *ClassificationHandler) Confirm(c *gin.Context) {
	var req models.ConfirmClassificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.accounts.GetByCode(c.Request.Context(), req.AccountCode); err != nil {
		respondError(c, err)
		return
	}

	if err := h.memory.Confirm(c.Request.Context(), req.Description, req.AccountCode); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "confirmed"})
}

// ListAccounts returns the active chart of accounts.
func (h *ClassificationHandler) ListAccounts(c *gin.Context) {
	accounts, err := h.accounts.ListActive(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}
