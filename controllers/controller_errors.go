package controllers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"rentledger/services"
)

// respondServiceError maps a service-layer error to an HTTP response
func respondServiceError(c *gin.Context, err error) {
	var ve *services.ValidationError
	var ce *services.ConflictError
	var ne *services.NotFoundError
	var te *services.InvalidTransitionError
	var se *services.StoreUnavailableError

	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Message})
	case errors.As(err, &ne):
		c.JSON(http.StatusNotFound, gin.H{"error": ne.Message})
	case errors.As(err, &ce):
		c.JSON(http.StatusConflict, gin.H{"error": ce.Message})
	case errors.As(err, &te):
		c.JSON(http.StatusConflict, gin.H{"error": te.Error()})
	case errors.As(err, &se):
		log.Printf("Store unavailable: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service temporarily unavailable"})
	default:
		log.Printf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
	}
}
