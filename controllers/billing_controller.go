package controllers

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"rentledger/database"
	"rentledger/services"
)

// InvoiceRequest contains data for generating an invoice
type InvoiceRequest struct {
	TenantID    uint      `json:"tenant_id" binding:"required"`
	PeriodStart time.Time `json:"period_start" binding:"required"`
	PeriodEnd   time.Time `json:"period_end" binding:"required"`
	Amount      float64   `json:"amount" binding:"required"`
}

// GenerateInvoice creates an invoice for a tenant's billing period.
// Generating the same (tenant, period start) twice returns the existing
// invoice.
func GenerateInvoice(c *gin.Context) {
	var request InvoiceRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	invoice, err := services.GenerateInvoice(database.DB,
		request.TenantID, request.PeriodStart, request.PeriodEnd, request.Amount)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, invoice)
}

// GetTenantInvoices lists a tenant's invoices ordered by due date
func GetTenantInvoices(c *gin.Context) {
	tenantID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid lease ID"})
		return
	}

	var invoices []database.Invoice
	if err := database.DB.Where("tenant_id = ?", uint(tenantID)).
		Order("due_date ASC, id ASC").
		Find(&invoices).Error; err != nil {
		log.Printf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve invoices"})
		return
	}

	c.JSON(http.StatusOK, invoices)
}

// SweepOverdueInvoices re-derives the status of pending invoices past their
// due date. Exposed so operators can force a sweep between scheduled runs.
func SweepOverdueInvoices(c *gin.Context) {
	flipped, err := services.MarkOverdueInvoices(database.DB)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"overdue": flipped})
}
