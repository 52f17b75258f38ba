package controllers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"rentledger/database"
	"rentledger/services"
)

// PropertyRequest contains data for creating or updating a property
type PropertyRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Address     string `json:"address" binding:"required"`
	City        string `json:"city"`
	State       string `json:"state"`
	ZipCode     string `json:"zip_code"`
	Type        string `json:"type" binding:"required"`
	Status      string `json:"status"`
	ManagerID   *uint  `json:"manager_id"`
	AgentID     *uint  `json:"agent_id"`
}

// UnitRequest contains data for adding a unit to a property
type UnitRequest struct {
	Label     string `json:"label" binding:"required"`
	Bedrooms  int    `json:"bedrooms"`
	Bathrooms int    `json:"bathrooms"`
}

// CreateProperty creates a property owned by the authenticated user
func CreateProperty(c *gin.Context) {
	userID, _ := c.Get("user_id")
	ownerID, ok := userID.(uint)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user ID format"})
		return
	}

	var request PropertyRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	if !database.ValidPropertyType(request.Type) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown property type"})
		return
	}
	status := request.Status
	if status == "" {
		status = database.PropertyStatusForRent
	}
	if !database.ValidPropertyStatus(status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown property status"})
		return
	}

	property := database.Property{
		OwnerID:     ownerID,
		ManagerID:   request.ManagerID,
		AgentID:     request.AgentID,
		Name:        request.Name,
		Description: request.Description,
		Address:     request.Address,
		City:        request.City,
		State:       request.State,
		ZipCode:     request.ZipCode,
		Type:        request.Type,
		Status:      status,
	}

	if err := database.DB.Create(&property).Error; err != nil {
		log.Printf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating property"})
		return
	}

	c.JSON(http.StatusCreated, property)
}

// GetProperties lists properties. Admins see everything; other roles see
// properties they own or manage.
func GetProperties(c *gin.Context) {
	role := c.GetString("role")
	userID, _ := c.Get("user_id")

	query := database.DB.Preload("Units").Order("properties.created_at DESC")
	if role != database.RoleAdmin {
		query = query.Where("owner_id = ? OR manager_id = ? OR agent_id = ?", userID, userID, userID)
	}

	var properties []database.Property
	if err := query.Find(&properties).Error; err != nil {
		log.Printf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve properties"})
		return
	}

	c.JSON(http.StatusOK, properties)
}

// GetPropertyByID returns one property with its units
func GetPropertyByID(c *gin.Context) {
	propertyID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid property ID"})
		return
	}

	var property database.Property
	if err := database.DB.Preload("Units").First(&property, uint(propertyID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Property not found"})
			return
		}
		log.Printf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, property)
}

// AddUnit adds a unit to a property
func AddUnit(c *gin.Context) {
	propertyID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid property ID"})
		return
	}

	var request UnitRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	var property database.Property
	if err := database.DB.First(&property, uint(propertyID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Property not found"})
			return
		}
		log.Printf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	unit := database.Unit{
		PropertyID: property.ID,
		Label:      request.Label,
		Bedrooms:   request.Bedrooms,
		Bathrooms:  request.Bathrooms,
		Status:     database.UnitStatusVacant,
	}

	if err := database.DB.Create(&unit).Error; err != nil {
		log.Printf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating unit"})
		return
	}

	c.JSON(http.StatusCreated, unit)
}

// GetPropertyOccupancy returns each unit of a property with its active lease
func GetPropertyOccupancy(c *gin.Context) {
	propertyID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid property ID"})
		return
	}

	occupancy, err := services.GetPropertyOccupancy(database.DB, uint(propertyID))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, occupancy)
}
