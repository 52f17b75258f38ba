package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"rentledger/database"
)

// RecordPaymentInput contains data for recording a payment
type RecordPaymentInput struct {
	TenantID             uint
	Amount               float64
	Method               string
	GatewayTransactionID *string
	Notes                string
}

// RecordPayment records a settlement for a tenant and allocates it across
// the tenant's outstanding invoices oldest-due-first. When a gateway
// transaction id is supplied the call is idempotent: replaying an id that is
// already linked to a payment returns that payment unchanged. Overpayment is
// valid; the unapplied remainder is held as tenant credit.
func RecordPayment(db *gorm.DB, input RecordPaymentInput) (*database.Payment, error) {
	if input.Amount <= 0 {
		return nil, NewValidationError("payment amount must be positive")
	}
	if input.Method == "" {
		input.Method = database.PaymentMethodCash
	}

	// Allocation order across one tenant's invoice set must be deterministic,
	// so writers for the same tenant take turns.
	mu := lockTenant(input.TenantID)
	mu.Lock()
	defer mu.Unlock()

	var payment database.Payment
	err := withRetry(db, func(tx *gorm.DB) error {
		var tenant database.Tenant
		if err := tx.First(&tenant, input.TenantID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewNotFoundError("tenant %d not found", input.TenantID)
			}
			return err
		}

		var gatewayTx *database.GatewayTransaction
		if input.GatewayTransactionID != nil {
			gt, existing, err := findOrCreateGatewayTransaction(tx, *input.GatewayTransactionID, input.Amount)
			if err != nil {
				return err
			}
			if existing != nil {
				// The gateway redelivered an already-reconciled event.
				payment = *existing
				return nil
			}
			gatewayTx = gt
		}

		payment = database.Payment{
			TenantID:             input.TenantID,
			Amount:               input.Amount,
			Method:               input.Method,
			Status:               database.PaymentStatusPending,
			Reference:            "PAY-" + uuid.NewString()[:8],
			GatewayTransactionID: input.GatewayTransactionID,
			Notes:                input.Notes,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		remaining, err := allocatePayment(tx, &payment, input.TenantID)
		if err != nil {
			return err
		}

		// Payment status reflects allocation completeness, not invoice outcome.
		status := database.PaymentStatusPaid
		if remaining > 0 {
			status = database.PaymentStatusPartial
		}
		payment.Status = status
		if err := tx.Model(&database.Payment{}).Where("id = ?", payment.ID).
			Update("status", status).Error; err != nil {
			return err
		}

		if gatewayTx != nil {
			if err := tx.Model(&database.GatewayTransaction{}).Where("id = ?", gatewayTx.ID).
				Update("payment_id", payment.ID).Error; err != nil {
				return err
			}
		}

		return auditRecord(tx, nil, "payment_recorded", "payment", payment.ID,
			fmt.Sprintf("amount %.2f via %s", input.Amount, input.Method))
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// allocatePayment spreads a payment across the tenant's outstanding invoices
// greedily, settling the oldest due invoice first and carrying the remainder
// forward. Returns the unapplied remainder.
func allocatePayment(tx *gorm.DB, payment *database.Payment, tenantID uint) (float64, error) {
	var invoices []database.Invoice
	if err := tx.Where("tenant_id = ? AND status IN ?", tenantID, []string{
		database.InvoiceStatusPending,
		database.InvoiceStatusOverdue,
		database.InvoiceStatusPartial,
	}).Order("due_date ASC, id ASC").Find(&invoices).Error; err != nil {
		return 0, err
	}

	remaining := payment.Amount
	for _, invoice := range invoices {
		if remaining <= 0 {
			break
		}
		allocated, err := allocatedAmount(tx, invoice.ID)
		if err != nil {
			return 0, err
		}
		outstanding := invoice.Amount - allocated
		if outstanding <= 0 {
			// Stale status; re-derive and move on.
			if _, err := RecomputeInvoiceStatus(tx, invoice.ID); err != nil {
				return 0, err
			}
			continue
		}

		apply := remaining
		if apply > outstanding {
			apply = outstanding
		}
		allocation := database.PaymentAllocation{
			PaymentID: payment.ID,
			InvoiceID: invoice.ID,
			Amount:    apply,
		}
		if err := tx.Create(&allocation).Error; err != nil {
			return 0, err
		}
		if _, err := RecomputeInvoiceStatus(tx, invoice.ID); err != nil {
			return 0, err
		}
		remaining -= apply
	}
	return remaining, nil
}

// findOrCreateGatewayTransaction resolves a gateway transaction id to its
// stored record, creating the record when the id has not been seen. When the
// transaction is already linked to a payment, that payment is returned so
// the caller can short-circuit as an idempotent replay.
func findOrCreateGatewayTransaction(tx *gorm.DB, transactionID string, amount float64) (*database.GatewayTransaction, *database.Payment, error) {
	var gt database.GatewayTransaction
	err := tx.Where("transaction_id = ?", transactionID).First(&gt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		gt = database.GatewayTransaction{
			TransactionID:   transactionID,
			TransactionType: "payment",
			Amount:          amount,
			Status:          database.GatewayStatusSuccess,
			TransactionDate: time.Now().UTC(),
		}
		if err := tx.Create(&gt).Error; err != nil {
			if isUniqueViolation(err) {
				// Lost a race with a concurrent delivery of the same id.
				return nil, nil, NewConflictError("gateway transaction %s is being reconciled concurrently", transactionID)
			}
			return nil, nil, err
		}
		return &gt, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	if gt.PaymentID != nil {
		var payment database.Payment
		if err := tx.First(&payment, *gt.PaymentID).Error; err != nil {
			return nil, nil, err
		}
		return &gt, &payment, nil
	}
	return &gt, nil, nil
}

// TenantCredit returns the unapplied portion of a tenant's payments: money
// received that is not assigned to any invoice.
func TenantCredit(db *gorm.DB, tenantID uint) (float64, error) {
	var paid float64
	if err := db.Model(&database.Payment{}).
		Where("tenant_id = ?", tenantID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&paid).Error; err != nil {
		return 0, err
	}

	var allocated float64
	if err := db.Model(&database.PaymentAllocation{}).
		Joins("JOIN payments ON payments.id = payment_allocations.payment_id").
		Where("payments.tenant_id = ?", tenantID).
		Select("COALESCE(SUM(payment_allocations.amount), 0)").
		Scan(&allocated).Error; err != nil {
		return 0, err
	}

	credit := paid - allocated
	if credit < 0 {
		credit = 0
	}
	return credit, nil
}

// GatewayEvent is an inbound mobile-money notification
type GatewayEvent struct {
	TransactionID   string    `json:"transaction_id"`
	TransactionType string    `json:"transaction_type"`
	PhoneNumber     string    `json:"phone_number"`
	Amount          float64   `json:"amount"`
	Reference       string    `json:"reference"`
	Status          string    `json:"status"`
	ResponseCode    string    `json:"response_code"`
	TransactionDate time.Time `json:"transaction_date"`
}

// IngestGatewayEvent consumes one gateway notification. Failure-status
// events are stored for audit and produce no payment. Malformed or
// unresolvable events are logged and dropped rather than raised, since no
// synchronous caller awaits gateway delivery. Successful events are
// reconciled through RecordPayment, which makes replays idempotent.
func IngestGatewayEvent(db *gorm.DB, event GatewayEvent) (*database.Payment, error) {
	if event.TransactionID == "" || event.Amount <= 0 {
		log.Printf("Dropping malformed gateway event: id=%q amount=%.2f", event.TransactionID, event.Amount)
		return nil, nil
	}

	if event.Status != database.GatewayStatusSuccess {
		err := withRetry(db, func(tx *gorm.DB) error {
			return storeGatewayEvent(tx, event)
		})
		if err != nil {
			log.Printf("Failed to store failed gateway event %s: %v", event.TransactionID, err)
		}
		return nil, nil
	}

	tenantID, ok, err := resolveGatewayTenant(db, event)
	if err != nil {
		return nil, err
	}
	if !ok {
		log.Printf("Dropping unresolvable gateway event %s (reference=%q phone=%q)",
			event.TransactionID, event.Reference, event.PhoneNumber)
		err := withRetry(db, func(tx *gorm.DB) error {
			return storeGatewayEvent(tx, event)
		})
		if err != nil {
			log.Printf("Failed to store gateway event %s: %v", event.TransactionID, err)
		}
		return nil, nil
	}

	// Persist the full event before reconciling so the stored record carries
	// the gateway's own fields rather than reconstructed ones.
	if err := withRetry(db, func(tx *gorm.DB) error {
		return storeGatewayEvent(tx, event)
	}); err != nil {
		return nil, err
	}

	return RecordPayment(db, RecordPaymentInput{
		TenantID:             tenantID,
		Amount:               event.Amount,
		Method:               database.PaymentMethodMobileMoney,
		GatewayTransactionID: &event.TransactionID,
	})
}

// storeGatewayEvent records a gateway event exactly once, keyed on its
// transaction id. Existing records are left untouched.
func storeGatewayEvent(tx *gorm.DB, event GatewayEvent) error {
	var existing database.GatewayTransaction
	err := tx.Where("transaction_id = ?", event.TransactionID).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	transactionDate := event.TransactionDate
	if transactionDate.IsZero() {
		transactionDate = time.Now().UTC()
	}
	gt := database.GatewayTransaction{
		TransactionID:   event.TransactionID,
		TransactionType: event.TransactionType,
		PhoneNumber:     event.PhoneNumber,
		Amount:          event.Amount,
		Reference:       event.Reference,
		Status:          event.Status,
		ResponseCode:    event.ResponseCode,
		TransactionDate: transactionDate,
	}
	if err := tx.Create(&gt).Error; err != nil && !isUniqueViolation(err) {
		return err
	}
	return nil
}

// resolveGatewayTenant maps a gateway event to a tenant: the reference field
// is matched against invoice numbers first, then the payer phone number is
// matched to the occupant of an active lease.
func resolveGatewayTenant(db *gorm.DB, event GatewayEvent) (uint, bool, error) {
	if event.Reference != "" {
		var invoice database.Invoice
		err := db.Where("number = ?", event.Reference).First(&invoice).Error
		if err == nil {
			return invoice.TenantID, true, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, err
		}
	}

	if event.PhoneNumber != "" {
		var tenant database.Tenant
		err := db.Joins("JOIN users ON users.id = tenants.user_id").
			Where("users.phone = ? AND tenants.is_active = ?", event.PhoneNumber, true).
			Order("tenants.id ASC").
			First(&tenant).Error
		if err == nil {
			return tenant.ID, true, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, err
		}
	}

	return 0, false, nil
}
