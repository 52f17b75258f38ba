package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentledger/database"
)

func TestCreateMaintenanceRequest(t *testing.T) {
	db := setupTestDB(t)
	alice := createTestUser(t, db, "alice", "0700000001")
	property, units := createTestProperty(t, db, alice.ID, 1)
	lease := createTestLease(t, db, alice.ID, property.ID, &units[0].ID)

	request, err := CreateMaintenanceRequest(db, CreateMaintenanceRequestInput{
		TenantID: lease.ID,
		Title:    "Leaking kitchen tap",
	})
	require.NoError(t, err)
	assert.Equal(t, database.MaintenanceStatusPending, request.Status)
	assert.Equal(t, database.MaintenancePriorityMedium, request.Priority)
	assert.Equal(t, lease.PropertyID, request.PropertyID)
	assert.Nil(t, request.CompletedAt)

	var ve *ValidationError
	_, err = CreateMaintenanceRequest(db, CreateMaintenanceRequestInput{TenantID: lease.ID})
	assert.ErrorAs(t, err, &ve)

	var ne *NotFoundError
	_, err = CreateMaintenanceRequest(db, CreateMaintenanceRequestInput{
		TenantID: 9999,
		Title:    "Broken lock",
	})
	assert.ErrorAs(t, err, &ne)
}

func TestMaintenanceForwardTransitions(t *testing.T) {
	db := setupTestDB(t)
	alice := createTestUser(t, db, "alice", "0700000001")
	property, units := createTestProperty(t, db, alice.ID, 1)
	lease := createTestLease(t, db, alice.ID, property.ID, &units[0].ID)

	request, err := CreateMaintenanceRequest(db, CreateMaintenanceRequestInput{
		TenantID: lease.ID,
		Title:    "Leaking kitchen tap",
		Priority: database.MaintenancePriorityHigh,
	})
	require.NoError(t, err)

	inProgress, err := TransitionMaintenance(db, request.ID, database.MaintenanceStatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, database.MaintenanceStatusInProgress, inProgress.Status)
	assert.Nil(t, inProgress.CompletedAt)

	completed, err := TransitionMaintenance(db, request.ID, database.MaintenanceStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, database.MaintenanceStatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)
	assert.WithinDuration(t, time.Now(), *completed.CompletedAt, 5*time.Second)
}

func TestMaintenanceBackwardTransitionRejected(t *testing.T) {
	db := setupTestDB(t)
	alice := createTestUser(t, db, "alice", "0700000001")
	property, units := createTestProperty(t, db, alice.ID, 1)
	lease := createTestLease(t, db, alice.ID, property.ID, &units[0].ID)

	request, err := CreateMaintenanceRequest(db, CreateMaintenanceRequestInput{
		TenantID: lease.ID,
		Title:    "Leaking kitchen tap",
	})
	require.NoError(t, err)

	_, err = TransitionMaintenance(db, request.ID, database.MaintenanceStatusInProgress)
	require.NoError(t, err)
	completed, err := TransitionMaintenance(db, request.ID, database.MaintenanceStatusCompleted)
	require.NoError(t, err)
	firstCompletedAt := *completed.CompletedAt

	var te *InvalidTransitionError
	_, err = TransitionMaintenance(db, request.ID, database.MaintenanceStatusInProgress)
	require.ErrorAs(t, err, &te)

	_, err = TransitionMaintenance(db, request.ID, database.MaintenanceStatusPending)
	require.ErrorAs(t, err, &te)

	// The failed transitions left the record untouched.
	var got database.MaintenanceRequest
	require.NoError(t, db.First(&got, request.ID).Error)
	assert.Equal(t, database.MaintenanceStatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, firstCompletedAt.Unix(), got.CompletedAt.Unix())
}

func TestMaintenanceSkipForwardRejected(t *testing.T) {
	db := setupTestDB(t)
	alice := createTestUser(t, db, "alice", "0700000001")
	property, units := createTestProperty(t, db, alice.ID, 1)
	lease := createTestLease(t, db, alice.ID, property.ID, &units[0].ID)

	request, err := CreateMaintenanceRequest(db, CreateMaintenanceRequestInput{
		TenantID: lease.ID,
		Title:    "Cracked window",
	})
	require.NoError(t, err)

	var te *InvalidTransitionError
	_, err = TransitionMaintenance(db, request.ID, database.MaintenanceStatusCompleted)
	require.ErrorAs(t, err, &te)

	var got database.MaintenanceRequest
	require.NoError(t, db.First(&got, request.ID).Error)
	assert.Equal(t, database.MaintenanceStatusPending, got.Status)
}

func TestMaintenanceCancellation(t *testing.T) {
	db := setupTestDB(t)
	alice := createTestUser(t, db, "alice", "0700000001")
	property, units := createTestProperty(t, db, alice.ID, 1)
	lease := createTestLease(t, db, alice.ID, property.ID, &units[0].ID)

	fromPending, err := CreateMaintenanceRequest(db, CreateMaintenanceRequestInput{
		TenantID: lease.ID,
		Title:    "Noisy fan",
	})
	require.NoError(t, err)
	canceled, err := TransitionMaintenance(db, fromPending.ID, database.MaintenanceStatusCanceled)
	require.NoError(t, err)
	assert.Equal(t, database.MaintenanceStatusCanceled, canceled.Status)

	// Canceled is terminal.
	var te *InvalidTransitionError
	_, err = TransitionMaintenance(db, fromPending.ID, database.MaintenanceStatusInProgress)
	assert.ErrorAs(t, err, &te)

	var ve *ValidationError
	_, err = TransitionMaintenance(db, fromPending.ID, "reopened")
	assert.ErrorAs(t, err, &ve)
}

func TestMaintenanceQueueFilter(t *testing.T) {
	db := setupTestDB(t)
	alice := createTestUser(t, db, "alice", "0700000001")
	property, units := createTestProperty(t, db, alice.ID, 1)
	lease := createTestLease(t, db, alice.ID, property.ID, &units[0].ID)

	low, err := CreateMaintenanceRequest(db, CreateMaintenanceRequestInput{
		TenantID: lease.ID, Title: "Squeaky door", Priority: database.MaintenancePriorityLow,
	})
	require.NoError(t, err)
	high, err := CreateMaintenanceRequest(db, CreateMaintenanceRequestInput{
		TenantID: lease.ID, Title: "Burst pipe", Priority: database.MaintenancePriorityHigh,
	})
	require.NoError(t, err)

	queue, err := MaintenanceQueue(db, database.MaintenanceStatusPending)
	require.NoError(t, err)
	require.Len(t, queue, 2)
	assert.Equal(t, high.ID, queue[0].ID)
	assert.Equal(t, low.ID, queue[1].ID)

	_, err = TransitionMaintenance(db, high.ID, database.MaintenanceStatusInProgress)
	require.NoError(t, err)

	queue, err = MaintenanceQueue(db, database.MaintenanceStatusPending)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, low.ID, queue[0].ID)

	_, err = MaintenanceQueue(db, "bogus")
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}
