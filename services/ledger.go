package services

import (
	"errors"

	"gorm.io/gorm"

	"rentledger/database"
)

// TenantLedger is a read-only projection of a tenant's financial history:
// invoices, payments and the running balances derived from them.
type TenantLedger struct {
	Tenant      database.Tenant    `json:"tenant"`
	Invoices    []database.Invoice `json:"invoices"`
	Payments    []database.Payment `json:"payments"`
	Invoiced    float64            `json:"invoiced"`
	Paid        float64            `json:"paid"`
	Outstanding float64            `json:"outstanding"`
	Credit      float64            `json:"credit"`
}

// GetTenantLedger assembles the ledger projection for one tenant
func GetTenantLedger(db *gorm.DB, tenantID uint) (*TenantLedger, error) {
	var tenant database.Tenant
	if err := db.First(&tenant, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("tenant %d not found", tenantID)
		}
		return nil, err
	}

	ledger := TenantLedger{Tenant: tenant}

	if err := db.Where("tenant_id = ?", tenantID).
		Order("due_date ASC, id ASC").
		Find(&ledger.Invoices).Error; err != nil {
		return nil, err
	}
	if err := db.Preload("Allocations").
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC, id ASC").
		Find(&ledger.Payments).Error; err != nil {
		return nil, err
	}

	for _, invoice := range ledger.Invoices {
		ledger.Invoiced += invoice.Amount
	}
	for _, payment := range ledger.Payments {
		ledger.Paid += payment.Amount
	}

	outstanding, err := OutstandingBalance(db, tenantID)
	if err != nil {
		return nil, err
	}
	ledger.Outstanding = outstanding

	credit, err := TenantCredit(db, tenantID)
	if err != nil {
		return nil, err
	}
	ledger.Credit = credit

	return &ledger, nil
}

// UnitOccupancy is a read-only projection of one unit and its current lease
type UnitOccupancy struct {
	Unit         database.Unit    `json:"unit"`
	ActiveTenant *database.Tenant `json:"active_tenant"`
}

// GetPropertyOccupancy lists every unit of a property with its active lease,
// if any.
func GetPropertyOccupancy(db *gorm.DB, propertyID uint) ([]UnitOccupancy, error) {
	var property database.Property
	if err := db.First(&property, propertyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("property %d not found", propertyID)
		}
		return nil, err
	}

	var units []database.Unit
	if err := db.Where("property_id = ?", propertyID).
		Order("label ASC, id ASC").
		Find(&units).Error; err != nil {
		return nil, err
	}

	occupancy := make([]UnitOccupancy, 0, len(units))
	for _, unit := range units {
		entry := UnitOccupancy{Unit: unit}

		var tenant database.Tenant
		err := db.Where("property_id = ? AND unit_id = ? AND is_active = ?",
			propertyID, unit.ID, true).
			First(&tenant).Error
		if err == nil {
			entry.ActiveTenant = &tenant
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		occupancy = append(occupancy, entry)
	}
	return occupancy, nil
}
