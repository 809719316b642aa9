package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pettycash/internal/models"
	"pettycash/internal/service"
)

type VoucherHandler struct {
	vouchers *service.VoucherService
	logger   *zap.Logger
}

func NewVoucherHandler(vouchers *service.VoucherService, logger *zap.Logger) *VoucherHandler {
	return &VoucherHandler{vouchers: vouchers, logger: logger}
}

func (h *VoucherHandler) Create(c *gin.Context) {
	var req models.CreateVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	voucher, err := h.vouchers.Create(c.Request.Context(), &req)
	if err != nil {
		h.logger.Error("failed to create voucher", zap.Error(err))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, voucher)
}

func (h *VoucherHandler) Get(c *gin.Context) {
	voucher, err := h.vouchers.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, voucher)
}

func (h *VoucherHandler) Post(c *gin.Context) {
	voucher, err := h.vouchers.Post(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, voucher)
}
