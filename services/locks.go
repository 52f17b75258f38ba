package services

import (
	"fmt"
	"sync"
)

// Per-key mutexes serialize writers touching the same tenant's invoice set
// or the same (property, unit) pair. Operations on different keys proceed
// in parallel.
var (
	tenantLocks sync.Map
	unitLocks   sync.Map
)

func lockTenant(tenantID uint) *sync.Mutex {
	mu, _ := tenantLocks.LoadOrStore(tenantID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func lockUnit(propertyID uint, unitID *uint) *sync.Mutex {
	key := fmt.Sprintf("%d/-", propertyID)
	if unitID != nil {
		key = fmt.Sprintf("%d/%d", propertyID, *unitID)
	}
	mu, _ := unitLocks.LoadOrStore(key, &sync.Mutex{})
	return mu.(*sync.Mutex)
}
