package controllers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/razorpay/razorpay-go"
	"gorm.io/gorm"

	"rentledger/config"
	"rentledger/database"
	"rentledger/services"
)

// CheckoutRequest contains data for creating a gateway checkout order
type CheckoutRequest struct {
	InvoiceID uint `json:"invoice_id" binding:"required"`
}

// ManualPaymentRequest contains data for recording an off-gateway payment
type ManualPaymentRequest struct {
	TenantID uint    `json:"tenant_id" binding:"required"`
	Amount   float64 `json:"amount" binding:"required"`
	Method   string  `json:"method"`
	Notes    string  `json:"notes"`
}

// GenerateRentCheckout creates a gateway order for paying an invoice. The
// returned order id is what the gateway echoes back as the transaction
// reference once the tenant completes payment.
func GenerateRentCheckout(c *gin.Context) {
	userID, _ := c.Get("user_id")
	occupantID, ok := userID.(uint)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user ID format"})
		return
	}

	var request CheckoutRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	var invoice database.Invoice
	result := database.DB.Joins("JOIN tenants ON tenants.id = invoices.tenant_id").
		Where("invoices.id = ? AND tenants.user_id = ?", request.InvoiceID, occupantID).
		First(&invoice)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found or doesn't belong to you"})
			return
		}
		log.Printf("Database error: %v", result.Error)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	if invoice.Status == database.InvoiceStatusPaid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invoice is already paid"})
		return
	}

	client := razorpay.NewClient(config.AppConfig.GatewayKey, config.AppConfig.GatewaySecret)

	// Gateway amounts are in the smallest currency unit.
	amountInCents := int64(invoice.Amount * 100)

	data := map[string]interface{}{
		"amount":   amountInCents,
		"currency": "KES",
		"receipt":  invoice.Number,
		"notes": map[string]interface{}{
			"tenant_id":  invoice.TenantID,
			"invoice_id": invoice.ID,
			"reference":  invoice.Number,
		},
	}

	gatewayOrder, err := client.Order.Create(data, nil)
	if err != nil {
		log.Printf("Gateway order creation error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating payment order"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"gateway_order_id": gatewayOrder["id"],
		"amount":           invoice.Amount,
		"currency":         "KES",
		"key":              config.AppConfig.GatewayKey,
		"reference":        invoice.Number,
	})
}

// HandleGatewayWebhook consumes an inbound gateway event. The payload
// signature is verified against the webhook secret; events that fail
// verification are rejected, everything else is acknowledged regardless of
// reconciliation outcome since the gateway retries unacknowledged events.
func HandleGatewayWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable payload"})
		return
	}

	signature := c.GetHeader("X-Gateway-Signature")
	if !verifyGatewaySignature(body, signature, config.AppConfig.GatewayWebhookSecret) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid webhook signature"})
		return
	}

	var event services.GatewayEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("Dropping malformed gateway payload: %v", err)
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	payment, err := services.IngestGatewayEvent(database.DB, event)
	if err != nil {
		log.Printf("Gateway event %s reconciliation failed: %v", event.TransactionID, err)
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	response := gin.H{"received": true}
	if payment != nil {
		response["payment_id"] = payment.ID
	}
	c.JSON(http.StatusOK, response)
}

// RecordManualPayment records a cash or bank payment collected outside the
// gateway and reconciles it against the tenant's outstanding invoices.
func RecordManualPayment(c *gin.Context) {
	var request ManualPaymentRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	payment, err := services.RecordPayment(database.DB, services.RecordPaymentInput{
		TenantID: request.TenantID,
		Amount:   request.Amount,
		Method:   request.Method,
		Notes:    request.Notes,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, payment)
}

// GetPaymentHistory gets payment history for a user
func GetPaymentHistory(c *gin.Context) {
	role := c.GetString("role")
	userID, _ := c.Get("user_id")

	userIDUint, ok := userID.(uint)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user ID in context"})
		return
	}

	type PaymentHistoryItem struct {
		ID                   uint      `json:"id"`
		TenantID             uint      `json:"tenant_id"`
		OccupantName         string    `json:"occupant_name"`
		Amount               float64   `json:"amount"`
		Method               string    `json:"method"`
		Status               string    `json:"status"`
		Reference            string    `json:"reference"`
		GatewayTransactionID *string   `json:"gateway_transaction_id"`
		CreatedAt            time.Time `json:"created_at"`
	}

	var payments []PaymentHistoryItem
	query := database.DB.Model(&database.Payment{}).
		Select("payments.id, payments.tenant_id, users.name as occupant_name, payments.amount, payments.method, payments.status, payments.reference, payments.gateway_transaction_id, payments.created_at").
		Joins("JOIN tenants ON payments.tenant_id = tenants.id").
		Joins("JOIN users ON tenants.user_id = users.id").
		Order("payments.created_at DESC").
		Limit(100)

	switch role {
	case database.RoleAdmin:
		// Admin sees everything.
	case database.RolePropertyManager, database.RoleLandlord:
		query = query.Joins("JOIN properties ON tenants.property_id = properties.id").
			Where("properties.owner_id = ? OR properties.manager_id = ?", userIDUint, userIDUint)
	case database.RoleTenant:
		query = query.Where("tenants.user_id = ?", userIDUint)
	default:
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
		return
	}

	if err := query.Scan(&payments).Error; err != nil {
		log.Printf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, payments)
}

// GetTenantCredit returns the unapplied overpayment balance for a lease
func GetTenantCredit(c *gin.Context) {
	tenantID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid lease ID"})
		return
	}

	credit, err := services.TenantCredit(database.DB, uint(tenantID))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tenant_id": tenantID, "credit": credit})
}

func verifyGatewaySignature(payload []byte, signature, secret string) bool {
	if secret == "" {
		// Unset secret means verification is disabled (local development).
		return true
	}
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	expected := hex.EncodeToString(h.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
