package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pettycash/internal/models"
)

// respondError maps the domain error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var (
		invalidState *models.InvalidStateTransition
		mismatch     *models.DenominationMismatch
		unavailable  *models.ClassificationUnavailable
		notFound     *models.NotFoundError
		unbalanced   *models.VoucherUnbalanced
		inconsistent *models.LedgerInconsistency
	)

	switch {
	case errors.As(err, &invalidState):
		c.JSON(http.StatusConflict, gin.H{
			"error":          invalidState.Error(),
			"current_status": invalidState.Current,
			"operation":      invalidState.Attempted,
		})
	case errors.As(err, &mismatch):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": mismatch.Error()})
	case errors.As(err, &unbalanced):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": unbalanced.Error()})
	case errors.As(err, &unavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": unavailable.Error()})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
	case errors.As(err, &inconsistent):
		c.JSON(http.StatusInternalServerError, gin.H{"error": inconsistent.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
