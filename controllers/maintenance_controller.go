package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"rentledger/database"
	"rentledger/services"
)

// MaintenanceRequestInput contains data for opening a repair request
type MaintenanceRequestInput struct {
	TenantID    uint   `json:"tenant_id" binding:"required"`
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// MaintenanceTransitionRequest contains data for moving a request forward
type MaintenanceTransitionRequest struct {
	Status string `json:"status" binding:"required"`
}

// CreateMaintenanceRequest opens a repair request against a lease
func CreateMaintenanceRequest(c *gin.Context) {
	var request MaintenanceRequestInput
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	created, err := services.CreateMaintenanceRequest(database.DB, services.CreateMaintenanceRequestInput{
		TenantID:    request.TenantID,
		Title:       request.Title,
		Description: request.Description,
		Priority:    request.Priority,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// TransitionMaintenanceRequest moves a maintenance request to its next
// status. Backward moves are rejected.
func TransitionMaintenanceRequest(c *gin.Context) {
	requestID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request ID"})
		return
	}

	var request MaintenanceTransitionRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	updated, err := services.TransitionMaintenance(database.DB, uint(requestID), request.Status)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// GetMaintenanceQueue lists maintenance requests, optionally filtered by
// status, most urgent first.
func GetMaintenanceQueue(c *gin.Context) {
	status := c.Query("status")

	requests, err := services.MaintenanceQueue(database.DB, status)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, requests)
}
