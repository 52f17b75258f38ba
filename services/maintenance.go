package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"rentledger/database"
)

// maintenanceTransitions holds the allowed forward moves of the maintenance
// state machine. Completed and canceled are terminal.
var maintenanceTransitions = map[string][]string{
	database.MaintenanceStatusPending:    {database.MaintenanceStatusInProgress, database.MaintenanceStatusCanceled},
	database.MaintenanceStatusInProgress: {database.MaintenanceStatusCompleted, database.MaintenanceStatusCanceled},
	database.MaintenanceStatusCompleted:  {},
	database.MaintenanceStatusCanceled:   {},
}

func canTransition(from, to string) bool {
	for _, next := range maintenanceTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CreateMaintenanceRequestInput contains data for opening a repair request
type CreateMaintenanceRequestInput struct {
	TenantID    uint
	Title       string
	Description string
	Priority    string
}

// CreateMaintenanceRequest opens a repair request against a tenancy. The
// request references the lease's property and unit but never gates any
// lease or billing operation.
func CreateMaintenanceRequest(db *gorm.DB, input CreateMaintenanceRequestInput) (*database.MaintenanceRequest, error) {
	if input.Title == "" {
		return nil, NewValidationError("maintenance request title is required")
	}
	if input.Priority == "" {
		input.Priority = database.MaintenancePriorityMedium
	}

	var request database.MaintenanceRequest
	err := withRetry(db, func(tx *gorm.DB) error {
		var tenant database.Tenant
		if err := tx.First(&tenant, input.TenantID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewNotFoundError("tenant %d not found", input.TenantID)
			}
			return err
		}

		request = database.MaintenanceRequest{
			TenantID:    tenant.ID,
			PropertyID:  tenant.PropertyID,
			UnitID:      tenant.UnitID,
			Title:       input.Title,
			Description: input.Description,
			Priority:    input.Priority,
			Status:      database.MaintenanceStatusPending,
		}
		return tx.Create(&request).Error
	})
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// TransitionMaintenance moves a maintenance request to the next status.
// Transitions are monotonic: backward or skip-forward moves fail with
// InvalidTransitionError and leave the request untouched. CompletedAt is
// set exactly once, on entry to completed.
func TransitionMaintenance(db *gorm.DB, requestID uint, next string) (*database.MaintenanceRequest, error) {
	if !database.ValidMaintenanceStatus(next) {
		return nil, NewValidationError("unknown maintenance status %q", next)
	}

	var request database.MaintenanceRequest
	err := withRetry(db, func(tx *gorm.DB) error {
		if err := tx.First(&request, requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewNotFoundError("maintenance request %d not found", requestID)
			}
			return err
		}

		if !canTransition(request.Status, next) {
			return &InvalidTransitionError{From: request.Status, To: next}
		}

		updates := map[string]interface{}{"status": next}
		if next == database.MaintenanceStatusCompleted && request.CompletedAt == nil {
			now := time.Now().UTC()
			request.CompletedAt = &now
			updates["completed_at"] = now
		}
		request.Status = next
		return tx.Model(&database.MaintenanceRequest{}).Where("id = ?", request.ID).
			Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// MaintenanceQueue lists maintenance requests, optionally filtered by
// status, most urgent first.
func MaintenanceQueue(db *gorm.DB, status string) ([]database.MaintenanceRequest, error) {
	query := db.Model(&database.MaintenanceRequest{})
	if status != "" {
		if !database.ValidMaintenanceStatus(status) {
			return nil, NewValidationError("unknown maintenance status %q", status)
		}
		query = query.Where("status = ?", status)
	}

	var requests []database.MaintenanceRequest
	err := query.Order(
		"CASE priority WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END, created_at ASC",
	).Find(&requests).Error
	if err != nil {
		return nil, err
	}
	return requests, nil
}
