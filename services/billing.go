package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"rentledger/config"
	"rentledger/database"
)

// GenerateInvoice creates an invoice for a tenant's billing period. The call
// is idempotent per (tenant, periodStart): a second call for the same period
// returns the existing invoice instead of duplicating it. The due date is
// the period start plus the configured grace days, clamped so it never
// precedes the issue date.
func GenerateInvoice(db *gorm.DB, tenantID uint, periodStart, periodEnd time.Time, amount float64) (*database.Invoice, error) {
	if amount <= 0 {
		return nil, NewValidationError("invoice amount must be positive")
	}
	if !periodEnd.After(periodStart) {
		return nil, NewValidationError("period end must be after period start")
	}

	var invoice database.Invoice
	err := withRetry(db, func(tx *gorm.DB) error {
		var tenant database.Tenant
		if err := tx.First(&tenant, tenantID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewNotFoundError("tenant %d not found", tenantID)
			}
			return err
		}

		err := tx.Where("tenant_id = ? AND period_start = ?", tenantID, periodStart).
			First(&invoice).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		issueDate := time.Now().UTC()
		dueDate := periodStart.AddDate(0, 0, config.AppConfig.BillingGraceDays)
		if dueDate.Before(issueDate) {
			dueDate = issueDate
		}

		invoice = database.Invoice{
			TenantID:    tenantID,
			Number:      generateInvoiceNumber(),
			Amount:      amount,
			PeriodStart: periodStart,
			PeriodEnd:   periodEnd,
			IssueDate:   issueDate,
			DueDate:     dueDate,
			Status:      database.InvoiceStatusPending,
		}
		if err := tx.Create(&invoice).Error; err != nil {
			if isUniqueViolation(err) {
				// Lost a race with a concurrent generation for the same period.
				return tx.Where("tenant_id = ? AND period_start = ?", tenantID, periodStart).
					First(&invoice).Error
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// invoiceStatusFor derives an invoice's status from the allocated payment
// sum, owed amount and due date. This is the only rule that produces
// invoice statuses.
func invoiceStatusFor(amount, allocated float64, dueDate, now time.Time) string {
	switch {
	case allocated >= amount:
		return database.InvoiceStatusPaid
	case allocated > 0:
		return database.InvoiceStatusPartial
	case now.After(dueDate):
		return database.InvoiceStatusOverdue
	default:
		return database.InvoiceStatusPending
	}
}

// allocatedAmount sums the payment allocations applied to an invoice
func allocatedAmount(tx *gorm.DB, invoiceID uint) (float64, error) {
	var total float64
	err := tx.Model(&database.PaymentAllocation{}).
		Where("invoice_id = ?", invoiceID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}

// RecomputeInvoiceStatus re-derives and persists the status of an invoice
// from its payment allocations. No other code path writes Invoice.Status.
func RecomputeInvoiceStatus(tx *gorm.DB, invoiceID uint) (string, error) {
	var invoice database.Invoice
	if err := tx.First(&invoice, invoiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", NewNotFoundError("invoice %d not found", invoiceID)
		}
		return "", err
	}

	allocated, err := allocatedAmount(tx, invoiceID)
	if err != nil {
		return "", err
	}

	status := invoiceStatusFor(invoice.Amount, allocated, invoice.DueDate, time.Now().UTC())
	if status != invoice.Status {
		if err := tx.Model(&database.Invoice{}).Where("id = ?", invoiceID).
			Update("status", status).Error; err != nil {
			return "", err
		}
	}
	return status, nil
}

// MarkOverdueInvoices recomputes the status of pending invoices whose due
// date has passed. Intended to run periodically.
func MarkOverdueInvoices(db *gorm.DB) (int, error) {
	var flipped int
	err := withRetry(db, func(tx *gorm.DB) error {
		flipped = 0
		var ids []uint
		if err := tx.Model(&database.Invoice{}).
			Where("status = ? AND due_date < ?", database.InvoiceStatusPending, time.Now().UTC()).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		for _, id := range ids {
			status, err := RecomputeInvoiceStatus(tx, id)
			if err != nil {
				return err
			}
			if status == database.InvoiceStatusOverdue {
				flipped++
			}
		}
		return nil
	})
	return flipped, err
}

// HasOverdueInvoices reports whether a tenant has any unpaid invoice past
// its due date. Used as the renewal precondition.
func HasOverdueInvoices(tx *gorm.DB, tenantID uint) (bool, error) {
	var count int64
	err := tx.Model(&database.Invoice{}).
		Where("tenant_id = ? AND status <> ? AND due_date < ?",
			tenantID, database.InvoiceStatusPaid, time.Now().UTC()).
		Count(&count).Error
	return count > 0, err
}

// OutstandingBalance returns the total still owed across a tenant's
// unpaid invoices.
func OutstandingBalance(tx *gorm.DB, tenantID uint) (float64, error) {
	var invoiced float64
	if err := tx.Model(&database.Invoice{}).
		Where("tenant_id = ?", tenantID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&invoiced).Error; err != nil {
		return 0, err
	}

	var allocated float64
	if err := tx.Model(&database.PaymentAllocation{}).
		Joins("JOIN invoices ON invoices.id = payment_allocations.invoice_id").
		Where("invoices.tenant_id = ?", tenantID).
		Select("COALESCE(SUM(payment_allocations.amount), 0)").
		Scan(&allocated).Error; err != nil {
		return 0, err
	}

	balance := invoiced - allocated
	if balance < 0 {
		balance = 0
	}
	return balance, nil
}

func generateInvoiceNumber() string {
	return "INV-" + time.Now().Format("20060102") + "-" + uuid.NewString()[:8]
}
