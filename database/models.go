package database

import (
	"time"

	"gorm.io/gorm"
)

// User represents a user in the system
type User struct {
	gorm.Model
	Name         string `json:"name"`
	Username     string `json:"username" gorm:"uniqueIndex"`
	Email        string `json:"email" gorm:"uniqueIndex"`
	PasswordHash string `json:"-"`
	Role         string `json:"role"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	City         string `json:"city"`
	State        string `json:"state"`
	ZipCode      string `json:"zip_code"`
}

// Property represents a rental/sale property listing
type Property struct {
	gorm.Model
	OwnerID     uint   `json:"owner_id"`
	ManagerID   *uint  `json:"manager_id"`
	AgentID     *uint  `json:"agent_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Address     string `json:"address"`
	City        string `json:"city"`
	State       string `json:"state"`
	ZipCode     string `json:"zip_code"`
	Type        string `json:"type"`
	Status      string `json:"status"`
	Owner       User   `gorm:"foreignKey:OwnerID" json:"owner"`
	Manager     *User  `gorm:"foreignKey:ManagerID" json:"manager"`
	Agent       *User  `gorm:"foreignKey:AgentID" json:"agent"`
	Units       []Unit `gorm:"foreignKey:PropertyID" json:"units"`
}

// Unit represents a rentable unit within a property
type Unit struct {
	gorm.Model
	PropertyID uint     `json:"property_id" gorm:"index"`
	Label      string   `json:"label"`
	Bedrooms   int      `json:"bedrooms"`
	Bathrooms  int      `json:"bathrooms"`
	Status     string   `json:"status"`
	Property   Property `gorm:"foreignKey:PropertyID;constraint:OnDelete:RESTRICT" json:"property"`
}

// Tenant represents a lease: a time-bounded occupancy agreement binding a
// user to a property (and optionally a unit) with a rent obligation.
type Tenant struct {
	gorm.Model
	UserID          uint      `json:"user_id" gorm:"index"`
	PropertyID      uint      `json:"property_id" gorm:"index"`
	UnitID          *uint     `json:"unit_id" gorm:"index"`
	LeaseStart      time.Time `json:"lease_start"`
	LeaseEnd        time.Time `json:"lease_end"`
	RentAmount      float64   `json:"rent_amount"`
	SecurityDeposit float64   `json:"security_deposit"`
	IsActive        bool      `json:"is_active"`
	Notes           string    `json:"notes"`
	User            User      `gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT" json:"user"`
	Property        Property  `gorm:"foreignKey:PropertyID;constraint:OnDelete:RESTRICT" json:"property"`
	Unit            *Unit     `gorm:"foreignKey:UnitID;constraint:OnDelete:RESTRICT" json:"unit"`
}

// Invoice represents an amount owed by a tenant for a billing period.
// Status is derived from allocation sums via the billing engine and is
// never written by any other path.
type Invoice struct {
	gorm.Model
	TenantID    uint      `json:"tenant_id" gorm:"index;uniqueIndex:idx_invoices_tenant_period"`
	Number      string    `json:"number"`
	Amount      float64   `json:"amount"`
	PeriodStart time.Time `json:"period_start" gorm:"uniqueIndex:idx_invoices_tenant_period"`
	PeriodEnd   time.Time `json:"period_end"`
	IssueDate   time.Time `json:"issue_date"`
	DueDate     time.Time `json:"due_date"`
	Status      string    `json:"status"`
	Notes       string    `json:"notes"`
	Tenant      Tenant    `gorm:"foreignKey:TenantID;constraint:OnDelete:RESTRICT" json:"tenant"`
}

// Payment represents a settlement record for a tenant. A payment is spread
// across invoices through PaymentAllocation rows; any amount left over is
// held as tenant credit rather than assigned to an invoice.
type Payment struct {
	gorm.Model
	TenantID             uint                `json:"tenant_id" gorm:"index"`
	Amount               float64             `json:"amount"`
	Method               string              `json:"method"`
	Status               string              `json:"status"`
	Reference            string              `json:"reference"`
	GatewayTransactionID *string             `json:"gateway_transaction_id" gorm:"index"`
	Notes                string              `json:"notes"`
	Tenant               Tenant              `gorm:"foreignKey:TenantID;constraint:OnDelete:RESTRICT" json:"tenant"`
	Allocations          []PaymentAllocation `gorm:"foreignKey:PaymentID" json:"allocations"`
}

// PaymentAllocation records how much of a payment was applied to one invoice
type PaymentAllocation struct {
	gorm.Model
	PaymentID uint    `json:"payment_id" gorm:"index"`
	InvoiceID uint    `json:"invoice_id" gorm:"index"`
	Amount    float64 `json:"amount"`
	Payment   Payment `gorm:"foreignKey:PaymentID" json:"payment"`
	Invoice   Invoice `gorm:"foreignKey:InvoiceID" json:"invoice"`
}

// GatewayTransaction is an immutable record of a mobile-money gateway event.
// TransactionID is unique; a transaction links to at most one payment, which
// makes replayed deliveries idempotent.
type GatewayTransaction struct {
	gorm.Model
	TransactionID   string    `json:"transaction_id" gorm:"uniqueIndex"`
	TransactionType string    `json:"transaction_type"`
	PhoneNumber     string    `json:"phone_number"`
	Amount          float64   `json:"amount"`
	Reference       string    `json:"reference"`
	Status          string    `json:"status"`
	ResponseCode    string    `json:"response_code"`
	TransactionDate time.Time `json:"transaction_date"`
	PaymentID       *uint     `json:"payment_id" gorm:"index"`
	Payment         *Payment  `gorm:"foreignKey:PaymentID" json:"payment"`
}

// MaintenanceRequest represents a repair/service request for a tenancy
type MaintenanceRequest struct {
	gorm.Model
	TenantID    uint       `json:"tenant_id" gorm:"index"`
	PropertyID  uint       `json:"property_id" gorm:"index"`
	UnitID      *uint      `json:"unit_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	CompletedAt *time.Time `json:"completed_at"`
	Notes       string     `json:"notes"`
	Tenant      Tenant     `gorm:"foreignKey:TenantID;constraint:OnDelete:RESTRICT" json:"tenant"`
	Property    Property   `gorm:"foreignKey:PropertyID;constraint:OnDelete:RESTRICT" json:"property"`
	Unit        *Unit      `gorm:"foreignKey:UnitID" json:"unit"`
}

// Constants for status values
const (
	// User roles
	RoleAdmin           = "admin"
	RolePropertyManager = "property_manager"
	RoleLandlord        = "landlord"
	RoleRealtor         = "realtor"
	RoleTenant          = "tenant"

	PropertyTypeApartment  = "apartment"
	PropertyTypeHouse      = "house"
	PropertyTypeCommercial = "commercial"
	PropertyTypeLand       = "land"

	PropertyStatusForRent = "for_rent"
	PropertyStatusForSale = "for_sale"
	PropertyStatusRented  = "rented"
	PropertyStatusSold    = "sold"

	UnitStatusVacant   = "vacant"
	UnitStatusOccupied = "occupied"

	InvoiceStatusPending = "pending"
	InvoiceStatusPaid    = "paid"
	InvoiceStatusOverdue = "overdue"
	InvoiceStatusPartial = "partial"

	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusOverdue = "overdue"
	PaymentStatusPartial = "partial"

	PaymentMethodCash        = "cash"
	PaymentMethodBank        = "bank_transfer"
	PaymentMethodMobileMoney = "mobile_money"

	MaintenanceStatusPending    = "pending"
	MaintenanceStatusInProgress = "in_progress"
	MaintenanceStatusCompleted  = "completed"
	MaintenanceStatusCanceled   = "canceled"

	MaintenancePriorityLow    = "low"
	MaintenancePriorityMedium = "medium"
	MaintenancePriorityHigh   = "high"

	GatewayStatusSuccess = "success"
	GatewayStatusFailed  = "failed"
)

// ValidRole reports whether role is one of the known user roles
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RolePropertyManager, RoleLandlord, RoleRealtor, RoleTenant:
		return true
	}
	return false
}

// ValidPropertyType reports whether t is a known property type
func ValidPropertyType(t string) bool {
	switch t {
	case PropertyTypeApartment, PropertyTypeHouse, PropertyTypeCommercial, PropertyTypeLand:
		return true
	}
	return false
}

// ValidPropertyStatus reports whether s is a known property status
func ValidPropertyStatus(s string) bool {
	switch s {
	case PropertyStatusForRent, PropertyStatusForSale, PropertyStatusRented, PropertyStatusSold:
		return true
	}
	return false
}

// ValidMaintenanceStatus reports whether s is a known maintenance status
func ValidMaintenanceStatus(s string) bool {
	switch s {
	case MaintenanceStatusPending, MaintenanceStatusInProgress, MaintenanceStatusCompleted, MaintenanceStatusCanceled:
		return true
	}
	return false
}
