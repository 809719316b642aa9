package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pettycash/internal/models"
	"pettycash/internal/service"
)

type RequisitionHandler struct {
	requisitions  *service.RequisitionService
	disbursements *service.DisbursementService
	logger        *zap.Logger
}

func NewRequisitionHandler(requisitions *service.RequisitionService, disbursements *service.DisbursementService, logger *zap.Logger) *RequisitionHandler {
	return &RequisitionHandler{
		requisitions:  requisitions,
		disbursements: disbursements,
		logger:        logger,
	}
}

func (h *RequisitionHandler) Create(c *gin.Context) {
	var req models.CreateRequisitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	requisition, err := h.requisitions.Create(c.Request.Context(), &req, c.GetHeader("Idempotency-Key"))
	if err != nil {
		h.logger.Error("failed to create requisition", zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, requisition)
}

func (h *RequisitionHandler) Get(c *gin.Context) {
	requisition, err := h.requisitions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, requisition)
}

func (h *RequisitionHandler) List(c *gin.Context) {
	status := c.Query("status")
	var statuses []models.RequisitionStatus
	if status != "" {
		statuses = append(statuses, models.RequisitionStatus(status))
	} else {
		statuses = []models.RequisitionStatus{
			models.StatusDraft, models.StatusSubmitted, models.StatusAuthorised,
			models.StatusDisbursed, models.StatusReceived, models.StatusChangeSubmitted,
			models.StatusCompleted, models.StatusRejected,
		}
	}

	requisitions, err := h.requisitions.ListByStatus(c.Request.Context(), statuses...)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requisitions": requisitions})
}

func (h *RequisitionHandler) UpdateStatus(c *gin.Context) {
	var req models.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	requisition, err := h.requisitions.ApplyStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, requisition)
}

func (h *RequisitionHandler) Disburse(c *gin.Context) {
	var req models.DisburseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	disbursement, err := h.disbursements.Disburse(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.logger.Error("disburse failed", zap.String("requisition_id", c.Param("id")), zap.Error(err))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, disbursement)
}

func (h *RequisitionHandler) Acknowledge(c *gin.Context) {
	var req models.AcknowledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	requisition, err := h.disbursements.Acknowledge(c.Request.Context(), c.Param("id"), req.Signature)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, requisition)
}

func (h *RequisitionHandler) UpdateExpenses(c *gin.Context) {
	var req models.UpdateExpensesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	requisition, err := h.requisitions.UpdateExpenses(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, requisition)
}

func (h *RequisitionHandler) ReturnChange(c *gin.Context) {
	var req models.ReturnChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	disbursement, err := h.disbursements.ReturnChange(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, disbursement)
}

func (h *RequisitionHandler) ConfirmChange(c *gin.Context) {
	var req models.ConfirmChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	disbursement, err := h.disbursements.ConfirmChange(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, disbursement)
}
