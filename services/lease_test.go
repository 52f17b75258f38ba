package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentledger/database"
)

func TestCreateLeaseValidation(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "alice", "0700000001")
	property, units := createTestProperty(t, db, user.ID, 1)

	start := time.Now()

	_, err := CreateLease(db, CreateLeaseInput{
		UserID:     user.ID,
		PropertyID: property.ID,
		UnitID:     &units[0].ID,
		LeaseStart: start,
		LeaseEnd:   start, // not after start
		RentAmount: 5000,
	})
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)

	_, err = CreateLease(db, CreateLeaseInput{
		UserID:     user.ID,
		PropertyID: property.ID,
		UnitID:     &units[0].ID,
		LeaseStart: start,
		LeaseEnd:   start.AddDate(1, 0, 0),
		RentAmount: 0,
	})
	assert.ErrorAs(t, err, &ve)

	_, err = CreateLease(db, CreateLeaseInput{
		UserID:          user.ID,
		PropertyID:      property.ID,
		UnitID:          &units[0].ID,
		LeaseStart:      start,
		LeaseEnd:        start.AddDate(1, 0, 0),
		RentAmount:      5000,
		SecurityDeposit: -1,
	})
	assert.ErrorAs(t, err, &ve)
}

func TestCreateLeaseMissingReferences(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "alice", "0700000001")
	property, units := createTestProperty(t, db, user.ID, 1)

	start := time.Now()
	end := start.AddDate(1, 0, 0)

	var ne *NotFoundError

	_, err := CreateLease(db, CreateLeaseInput{
		UserID: 9999, PropertyID: property.ID, UnitID: &units[0].ID,
		LeaseStart: start, LeaseEnd: end, RentAmount: 5000,
	})
	assert.ErrorAs(t, err, &ne)

	_, err = CreateLease(db, CreateLeaseInput{
		UserID: user.ID, PropertyID: 9999, UnitID: &units[0].ID,
		LeaseStart: start, LeaseEnd: end, RentAmount: 5000,
	})
	assert.ErrorAs(t, err, &ne)

	missingUnit := uint(9999)
	_, err = CreateLease(db, CreateLeaseInput{
		UserID: user.ID, PropertyID: property.ID, UnitID: &missingUnit,
		LeaseStart: start, LeaseEnd: end, RentAmount: 5000,
	})
	assert.ErrorAs(t, err, &ne)
}

func TestCreateLeaseConflictOnOccupiedUnit(t *testing.T) {
	db := setupTestDB(t)
	alice := createTestUser(t, db, "alice", "0700000001")
	bob := createTestUser(t, db, "bob", "0700000002")
	property, units := createTestProperty(t, db, alice.ID, 1)

	createTestLease(t, db, alice.ID, property.ID, &units[0].ID)

	_, err := CreateLease(db, CreateLeaseInput{
		UserID:     bob.ID,
		PropertyID: property.ID,
		UnitID:     &units[0].ID,
		LeaseStart: time.Now(),
		LeaseEnd:   time.Now().AddDate(1, 0, 0),
		RentAmount: 4500,
	})
	var ce *ConflictError
	require.ErrorAs(t, err, &ce)

	// Once the active lease ends, the unit can be re-let.
	aliceLease := &database.Tenant{}
	require.NoError(t, db.Where("user_id = ?", alice.ID).First(aliceLease).Error)
	_, err = TerminateLease(db, aliceLease.ID, time.Now())
	require.NoError(t, err)

	_, err = CreateLease(db, CreateLeaseInput{
		UserID:     bob.ID,
		PropertyID: property.ID,
		UnitID:     &units[0].ID,
		LeaseStart: time.Now(),
		LeaseEnd:   time.Now().AddDate(1, 0, 0),
		RentAmount: 4500,
	})
	assert.NoError(t, err)
}

func TestCreateLeaseConcurrentAttempts(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "owner", "0700000009")
	property, units := createTestProperty(t, db, owner.ID, 1)

	applicants := make([]database.User, 6)
	for i := range applicants {
		applicants[i] = createTestUser(t, db, "applicant"+string(rune('a'+i)), "070000001"+string(rune('0'+i)))
	}

	start := time.Now()
	end := start.AddDate(1, 0, 0)

	var wg sync.WaitGroup
	results := make([]error, len(applicants))
	for i := range applicants {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = CreateLease(db, CreateLeaseInput{
				UserID:     applicants[i].ID,
				PropertyID: property.ID,
				UnitID:     &units[0].ID,
				LeaseStart: start,
				LeaseEnd:   end,
				RentAmount: 5000,
			})
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range results {
		if err == nil {
			successes++
		} else {
			var ce *ConflictError
			assert.ErrorAs(t, err, &ce)
		}
	}
	assert.Equal(t, 1, successes)

	var active int64
	require.NoError(t, db.Model(&database.Tenant{}).
		Where("property_id = ? AND unit_id = ? AND is_active = ?", property.ID, units[0].ID, true).
		Count(&active).Error)
	assert.EqualValues(t, 1, active)
}

func TestCreateLeaseFlipsUnitAndPropertyStatus(t *testing.T) {
	db := setupTestDB(t)
	alice := createTestUser(t, db, "alice", "0700000001")
	property, units := createTestProperty(t, db, alice.ID, 2)

	createTestLease(t, db, alice.ID, property.ID, &units[0].ID)

	var unit database.Unit
	require.NoError(t, db.First(&unit, units[0].ID).Error)
	assert.Equal(t, database.UnitStatusOccupied, unit.Status)

	// One of two units occupied: property keeps its current status.
	var got database.Property
	require.NoError(t, db.First(&got, property.ID).Error)
	assert.Equal(t, database.PropertyStatusForRent, got.Status)

	bob := createTestUser(t, db, "bob", "0700000002")
	createTestLease(t, db, bob.ID, property.ID, &units[1].ID)

	require.NoError(t, db.First(&got, property.ID).Error)
	assert.Equal(t, database.PropertyStatusRented, got.Status)
}

func TestTerminateLease(t *testing.T) {
	db := setupTestDB(t)
	alice := createTestUser(t, db, "alice", "0700000001")
	property, units := createTestProperty(t, db, alice.ID, 1)
	lease := createTestLease(t, db, alice.ID, property.ID, &units[0].ID)

	terminated, err := TerminateLease(db, lease.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, terminated.IsActive)

	var unit database.Unit
	require.NoError(t, db.First(&unit, units[0].ID).Error)
	assert.Equal(t, database.UnitStatusVacant, unit.Status)

	var property2 database.Property
	require.NoError(t, db.First(&property2, property.ID).Error)
	assert.Equal(t, database.PropertyStatusForRent, property2.Status)

	// Terminating an inactive lease is a not-found condition.
	_, err = TerminateLease(db, lease.ID, time.Now())
	var ne *NotFoundError
	assert.ErrorAs(t, err, &ne)

	_, err = TerminateLease(db, 9999, time.Now())
	assert.ErrorAs(t, err, &ne)
}

func TestRenewLeaseGatedOnOverdueInvoices(t *testing.T) {
	db := setupTestDB(t)
	alice := createTestUser(t, db, "alice", "0700000001")
	property, units := createTestProperty(t, db, alice.ID, 1)
	lease := createTestLease(t, db, alice.ID, property.ID, &units[0].ID)

	invoice, err := GenerateInvoice(db, lease.ID,
		time.Now().AddDate(0, -1, 0), time.Now(), 5000)
	require.NoError(t, err)
	backdateInvoice(t, db, invoice.ID, 10)

	newEnd := lease.LeaseEnd.AddDate(1, 0, 0)

	_, err = RenewLease(db, lease.ID, newEnd, false)
	var ce *ConflictError
	require.ErrorAs(t, err, &ce)

	renewed, err := RenewLease(db, lease.ID, newEnd, true)
	require.NoError(t, err)
	assert.True(t, renewed.LeaseEnd.After(lease.LeaseEnd))
}

func TestRenewLeaseAfterSettlement(t *testing.T) {
	db := setupTestDB(t)
	alice := createTestUser(t, db, "alice", "0700000001")
	property, units := createTestProperty(t, db, alice.ID, 1)
	lease := createTestLease(t, db, alice.ID, property.ID, &units[0].ID)

	invoice, err := GenerateInvoice(db, lease.ID,
		time.Now().AddDate(0, -1, 0), time.Now(), 5000)
	require.NoError(t, err)
	backdateInvoice(t, db, invoice.ID, 10)

	_, err = RecordPayment(db, RecordPaymentInput{
		TenantID: lease.ID,
		Amount:   5000,
		Method:   database.PaymentMethodCash,
	})
	require.NoError(t, err)

	_, err = RenewLease(db, lease.ID, lease.LeaseEnd.AddDate(1, 0, 0), false)
	assert.NoError(t, err)
}
