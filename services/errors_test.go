package services

import (
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"rentledger/database"
)

func TestIsTransient(t *testing.T) {
	assert.False(t, isTransient(nil))
	assert.False(t, isTransient(errors.New("boom")))
	assert.False(t, isTransient(&pq.Error{Code: "23505"}))

	assert.True(t, isTransient(&pq.Error{Code: "40001"}))
	assert.True(t, isTransient(&pq.Error{Code: "40P01"}))
	assert.True(t, isTransient(&pq.Error{Code: "55P03"}))
	assert.True(t, isTransient(&pq.Error{Code: "08006"}))
}

func TestIsDomainError(t *testing.T) {
	assert.True(t, isDomainError(NewValidationError("bad input")))
	assert.True(t, isDomainError(NewConflictError("taken")))
	assert.True(t, isDomainError(NewNotFoundError("missing")))
	assert.True(t, isDomainError(&InvalidTransitionError{From: "completed", To: "pending"}))
	assert.False(t, isDomainError(errors.New("boom")))
	assert.False(t, isDomainError(&StoreUnavailableError{Attempts: 3}))
}

func TestWithRetrySurfacesDomainErrorOnce(t *testing.T) {
	db := setupTestDB(t)

	calls := 0
	err := withRetry(db, func(tx *gorm.DB) error {
		calls++
		return NewConflictError("occupied")
	})

	var ce *ConflictError
	assert.ErrorAs(t, err, &ce)
	assert.Equal(t, 1, calls)
}

func TestWithRetryExhaustsOnTransientFailure(t *testing.T) {
	db := setupTestDB(t)

	calls := 0
	err := withRetry(db, func(tx *gorm.DB) error {
		calls++
		return &pq.Error{Code: "40001"}
	})

	var se *StoreUnavailableError
	assert.ErrorAs(t, err, &se)
	assert.Equal(t, 3, calls)
}

func TestWithRetryRollsBackOnFailure(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "alice", "0700000001")

	err := withRetry(db, func(tx *gorm.DB) error {
		if err := tx.Model(&database.User{}).Where("id = ?", user.ID).
			Update("name", "changed").Error; err != nil {
			return err
		}
		return NewValidationError("abort")
	})
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)

	var got database.User
	assert.NoError(t, db.First(&got, user.ID).Error)
	assert.Equal(t, user.Name, got.Name)
}
