package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"rentledger/config"
	"rentledger/database"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	config.InitConfig()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// A single connection keeps the in-memory database alive and serializes
	// concurrent test writers the way row locks would.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&database.User{},
		&database.Property{},
		&database.Unit{},
		&database.Tenant{},
		&database.Invoice{},
		&database.Payment{},
		&database.PaymentAllocation{},
		&database.GatewayTransaction{},
		&database.MaintenanceRequest{},
		&database.AuditLog{},
	))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, username, phone string) database.User {
	t.Helper()
	user := database.User{
		Name:     "Test " + username,
		Username: username,
		Email:    username + "@example.com",
		Role:     database.RoleTenant,
		Phone:    phone,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createTestProperty(t *testing.T, db *gorm.DB, ownerID uint, unitCount int) (database.Property, []database.Unit) {
	t.Helper()
	property := database.Property{
		OwnerID: ownerID,
		Name:    "Riverside Court",
		Address: "12 River Rd",
		Type:    database.PropertyTypeApartment,
		Status:  database.PropertyStatusForRent,
	}
	require.NoError(t, db.Create(&property).Error)

	units := make([]database.Unit, 0, unitCount)
	for i := 0; i < unitCount; i++ {
		unit := database.Unit{
			PropertyID: property.ID,
			Label:      string(rune('A' + i)),
			Status:     database.UnitStatusVacant,
		}
		require.NoError(t, db.Create(&unit).Error)
		units = append(units, unit)
	}
	return property, units
}

func createTestLease(t *testing.T, db *gorm.DB, userID, propertyID uint, unitID *uint) *database.Tenant {
	t.Helper()
	tenant, err := CreateLease(db, CreateLeaseInput{
		UserID:          userID,
		PropertyID:      propertyID,
		UnitID:          unitID,
		LeaseStart:      time.Now().AddDate(0, -1, 0),
		LeaseEnd:        time.Now().AddDate(1, 0, 0),
		RentAmount:      5000,
		SecurityDeposit: 5000,
	})
	require.NoError(t, err)
	return tenant
}

// backdateInvoice pushes an invoice's due date into the past so overdue
// behavior can be exercised.
func backdateInvoice(t *testing.T, db *gorm.DB, invoiceID uint, daysAgo int) {
	t.Helper()
	due := time.Now().AddDate(0, 0, -daysAgo)
	require.NoError(t, db.Model(&database.Invoice{}).Where("id = ?", invoiceID).
		Update("due_date", due).Error)
}
