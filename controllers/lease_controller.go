package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"rentledger/database"
	"rentledger/services"
)

// LeaseRequest contains data for creating a lease
type LeaseRequest struct {
	UserID          uint      `json:"user_id" binding:"required"`
	PropertyID      uint      `json:"property_id" binding:"required"`
	UnitID          *uint     `json:"unit_id"`
	LeaseStart      time.Time `json:"lease_start" binding:"required"`
	LeaseEnd        time.Time `json:"lease_end" binding:"required"`
	RentAmount      float64   `json:"rent_amount" binding:"required"`
	SecurityDeposit float64   `json:"security_deposit"`
	Notes           string    `json:"notes"`
}

// LeaseTerminationRequest contains data for terminating a lease
type LeaseTerminationRequest struct {
	EffectiveDate time.Time `json:"effective_date" binding:"required"`
}

// LeaseRenewalRequest contains data for renewing a lease
type LeaseRenewalRequest struct {
	NewLeaseEnd time.Time `json:"new_lease_end" binding:"required"`
	Override    bool      `json:"override"`
}

// CreateLease creates an active lease on a (property, unit) pair
func CreateLease(c *gin.Context) {
	var request LeaseRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	tenant, err := services.CreateLease(database.DB, services.CreateLeaseInput{
		UserID:          request.UserID,
		PropertyID:      request.PropertyID,
		UnitID:          request.UnitID,
		LeaseStart:      request.LeaseStart,
		LeaseEnd:        request.LeaseEnd,
		RentAmount:      request.RentAmount,
		SecurityDeposit: request.SecurityDeposit,
		Notes:           request.Notes,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, tenant)
}

// TerminateLease ends a lease effective the given date
func TerminateLease(c *gin.Context) {
	tenantID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid lease ID"})
		return
	}

	var request LeaseTerminationRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	tenant, err := services.TerminateLease(database.DB, uint(tenantID), request.EffectiveDate)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, tenant)
}

// RenewLease extends an active lease. The override flag is honored only for
// privileged roles; tenant-initiated renewals stay gated on overdue
// invoices.
func RenewLease(c *gin.Context) {
	tenantID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid lease ID"})
		return
	}

	var request LeaseRenewalRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	role := c.GetString("role")
	override := request.Override &&
		(role == database.RoleAdmin || role == database.RolePropertyManager || role == database.RoleLandlord)

	tenant, err := services.RenewLease(database.DB, uint(tenantID), request.NewLeaseEnd, override)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, tenant)
}

// GetTenantLedger returns the invoice/payment history and balances for a
// lease.
func GetTenantLedger(c *gin.Context) {
	tenantID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid lease ID"})
		return
	}

	ledger, err := services.GetTenantLedger(database.DB, uint(tenantID))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	// Tenants may only read their own ledger.
	role := c.GetString("role")
	if role == database.RoleTenant {
		userID, _ := c.Get("user_id")
		if id, ok := userID.(uint); !ok || ledger.Tenant.UserID != id {
			c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
			return
		}
	}

	c.JSON(http.StatusOK, ledger)
}
