package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"rentledger/database"
)

// CreateLeaseInput contains data for creating a lease
type CreateLeaseInput struct {
	UserID          uint
	PropertyID      uint
	UnitID          *uint
	LeaseStart      time.Time
	LeaseEnd        time.Time
	RentAmount      float64
	SecurityDeposit float64
	Notes           string
}

// CreateLease creates an active lease for a user on a (property, unit) pair.
// At most one active lease may exist per pair; a second attempt overlapping
// the requested date range fails with ConflictError. The target unit is
// flipped to occupied and the property status is kept consistent with its
// occupancy.
func CreateLease(db *gorm.DB, input CreateLeaseInput) (*database.Tenant, error) {
	if !input.LeaseEnd.After(input.LeaseStart) {
		return nil, NewValidationError("lease end must be after lease start")
	}
	if input.RentAmount <= 0 {
		return nil, NewValidationError("rent amount must be positive")
	}
	if input.SecurityDeposit < 0 {
		return nil, NewValidationError("security deposit cannot be negative")
	}

	// Serialize the check-and-insert per (property, unit) pair so concurrent
	// requests for the same unit cannot both pass the occupancy check.
	mu := lockUnit(input.PropertyID, input.UnitID)
	mu.Lock()
	defer mu.Unlock()

	var tenant database.Tenant
	err := withRetry(db, func(tx *gorm.DB) error {
		var user database.User
		if err := tx.First(&user, input.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewNotFoundError("user %d not found", input.UserID)
			}
			return err
		}

		var property database.Property
		if err := tx.First(&property, input.PropertyID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewNotFoundError("property %d not found", input.PropertyID)
			}
			return err
		}

		if input.UnitID != nil {
			var unit database.Unit
			if err := tx.Where("id = ? AND property_id = ?", *input.UnitID, input.PropertyID).
				First(&unit).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return NewNotFoundError("unit %d not found on property %d", *input.UnitID, input.PropertyID)
				}
				return err
			}
		}

		// One active lease per (property, unit) pair. Inactive lease history
		// never conflicts.
		occupied := tx.Model(&database.Tenant{}).
			Where("property_id = ? AND is_active = ?", input.PropertyID, true)
		if input.UnitID != nil {
			occupied = occupied.Where("unit_id = ?", *input.UnitID)
		} else {
			occupied = occupied.Where("unit_id IS NULL")
		}

		var count int64
		if err := occupied.Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return NewConflictError("an active lease already occupies this unit for the requested period")
		}

		tenant = database.Tenant{
			UserID:          input.UserID,
			PropertyID:      input.PropertyID,
			UnitID:          input.UnitID,
			LeaseStart:      input.LeaseStart,
			LeaseEnd:        input.LeaseEnd,
			RentAmount:      input.RentAmount,
			SecurityDeposit: input.SecurityDeposit,
			IsActive:        true,
			Notes:           input.Notes,
		}
		if err := tx.Create(&tenant).Error; err != nil {
			if isUniqueViolation(err) {
				return NewConflictError("an active lease already occupies this unit for the requested period")
			}
			return err
		}

		if input.UnitID != nil {
			if err := tx.Model(&database.Unit{}).Where("id = ?", *input.UnitID).
				Update("status", database.UnitStatusOccupied).Error; err != nil {
				return err
			}
		}

		if err := refreshPropertyStatus(tx, input.PropertyID); err != nil {
			return err
		}

		return auditRecord(tx, &input.UserID, "lease_created", "tenant", tenant.ID,
			fmt.Sprintf("lease on property %d", input.PropertyID))
	})
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

// TerminateLease deactivates a lease effective the given date and frees the
// occupied unit. Fails with NotFoundError if the lease does not exist or is
// already inactive.
func TerminateLease(db *gorm.DB, tenantID uint, effectiveDate time.Time) (*database.Tenant, error) {
	var tenant database.Tenant
	err := withRetry(db, func(tx *gorm.DB) error {
		if err := tx.First(&tenant, tenantID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewNotFoundError("lease %d not found", tenantID)
			}
			return err
		}
		if !tenant.IsActive {
			return NewNotFoundError("lease %d is not active", tenantID)
		}
		if effectiveDate.Before(tenant.LeaseStart) {
			return NewValidationError("effective date cannot precede lease start")
		}

		tenant.IsActive = false
		tenant.LeaseEnd = effectiveDate
		if err := tx.Model(&database.Tenant{}).Where("id = ?", tenant.ID).
			Updates(map[string]interface{}{
				"is_active": false,
				"lease_end": effectiveDate,
			}).Error; err != nil {
			return err
		}

		if tenant.UnitID != nil {
			if err := tx.Model(&database.Unit{}).Where("id = ?", *tenant.UnitID).
				Update("status", database.UnitStatusVacant).Error; err != nil {
				return err
			}
		}

		if err := refreshPropertyStatus(tx, tenant.PropertyID); err != nil {
			return err
		}

		return auditRecord(tx, nil, "lease_terminated", "tenant", tenant.ID,
			fmt.Sprintf("effective %s", effectiveDate.Format("2006-01-02")))
	})
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

// RenewLease extends an active lease. Renewal is blocked while the tenant
// has outstanding overdue invoices unless override is set by a privileged
// caller.
func RenewLease(db *gorm.DB, tenantID uint, newLeaseEnd time.Time, override bool) (*database.Tenant, error) {
	var tenant database.Tenant
	err := withRetry(db, func(tx *gorm.DB) error {
		if err := tx.First(&tenant, tenantID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewNotFoundError("lease %d not found", tenantID)
			}
			return err
		}
		if !tenant.IsActive {
			return NewNotFoundError("lease %d is not active", tenantID)
		}
		if !newLeaseEnd.After(tenant.LeaseEnd) {
			return NewValidationError("new lease end must extend the current lease")
		}

		overdue, err := HasOverdueInvoices(tx, tenantID)
		if err != nil {
			return err
		}
		if overdue && !override {
			return NewConflictError("tenant %d has overdue invoices; renewal requires override", tenantID)
		}

		tenant.LeaseEnd = newLeaseEnd
		if err := tx.Model(&database.Tenant{}).Where("id = ?", tenant.ID).
			Update("lease_end", newLeaseEnd).Error; err != nil {
			return err
		}

		return auditRecord(tx, nil, "lease_renewed", "tenant", tenant.ID,
			fmt.Sprintf("until %s", newLeaseEnd.Format("2006-01-02")))
	})
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

// refreshPropertyStatus keeps a property's for_rent/rented status consistent
// with its active leases. Sale statuses are externally driven and never
// touched here.
func refreshPropertyStatus(tx *gorm.DB, propertyID uint) error {
	var property database.Property
	if err := tx.First(&property, propertyID).Error; err != nil {
		return err
	}
	if property.Status != database.PropertyStatusForRent && property.Status != database.PropertyStatusRented {
		return nil
	}

	var activeLeases int64
	if err := tx.Model(&database.Tenant{}).
		Where("property_id = ? AND is_active = ?", propertyID, true).
		Count(&activeLeases).Error; err != nil {
		return err
	}

	var totalUnits, vacantUnits int64
	if err := tx.Model(&database.Unit{}).Where("property_id = ?", propertyID).
		Count(&totalUnits).Error; err != nil {
		return err
	}
	if err := tx.Model(&database.Unit{}).
		Where("property_id = ? AND status = ?", propertyID, database.UnitStatusVacant).
		Count(&vacantUnits).Error; err != nil {
		return err
	}

	status := property.Status
	switch {
	case activeLeases == 0:
		status = database.PropertyStatusForRent
	case totalUnits == 0 || vacantUnits == 0:
		status = database.PropertyStatusRented
	}

	if status == property.Status {
		return nil
	}
	return tx.Model(&database.Property{}).Where("id = ?", propertyID).
		Update("status", status).Error
}

func auditRecord(tx *gorm.DB, userID *uint, action, entityType string, entityID uint, description string) error {
	entry := database.AuditLog{
		UserID:      userID,
		Action:      action,
		EntityType:  entityType,
		EntityID:    entityID,
		Description: description,
	}
	return tx.Create(&entry).Error
}
