package controllers

import (
	apperrors "dm-chat/errors"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// respondError maps the error taxonomy onto HTTP statuses at the edge.
// ErrMessageNotFound intentionally covers wrong-owner mutations too,
// so a 404 never reveals whether the row exists.
func respondError(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		c.JSON(http.StatusBadRequest, gin.H{"detail": validationErrs.Error()})
		return
	}

	switch {
	case errors.Is(err, apperrors.ErrBodyTooLong),
		errors.Is(err, apperrors.ErrReceiverRequired),
		errors.Is(err, apperrors.ErrAttachmentTooLarge),
		errors.Is(err, apperrors.ErrEmailTaken):
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
	case errors.Is(err, apperrors.ErrInvalidCredentials),
		errors.Is(err, apperrors.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, gin.H{"detail": err.Error()})
	case errors.Is(err, apperrors.ErrMessageNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": "Message not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "internal error"})
	}
}
