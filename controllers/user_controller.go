package controllers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"rentledger/database"
)

// ProfileUpdateRequest contains data for updating a user profile. Role is
// deliberately absent: it can only be changed by an admin through
// UpdateUserRole.
type ProfileUpdateRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
}

// RoleUpdateRequest contains data for an admin role change
type RoleUpdateRequest struct {
	Role string `json:"role" binding:"required"`
}

// GetUserProfile returns the authenticated user's profile
func GetUserProfile(c *gin.Context) {
	userID, _ := c.Get("user_id")

	var user database.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		log.Printf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	user.PasswordHash = ""
	c.JSON(http.StatusOK, user)
}

// UpdateUserProfile updates the authenticated user's contact details
func UpdateUserProfile(c *gin.Context) {
	userID, _ := c.Get("user_id")

	var request ProfileUpdateRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	updates := map[string]interface{}{}
	if request.Name != "" {
		updates["name"] = request.Name
	}
	if request.Phone != "" {
		updates["phone"] = request.Phone
	}
	if request.Address != "" {
		updates["address"] = request.Address
	}
	if request.City != "" {
		updates["city"] = request.City
	}
	if request.State != "" {
		updates["state"] = request.State
	}
	if request.ZipCode != "" {
		updates["zip_code"] = request.ZipCode
	}

	if len(updates) > 0 {
		if err := database.DB.Model(&database.User{}).Where("id = ?", userID).
			Updates(updates).Error; err != nil {
			log.Printf("Database error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating profile"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Profile updated"})
}

// UpdateUserRole changes a user's role. Admin only; every other path treats
// the role as immutable.
func UpdateUserRole(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var request RoleUpdateRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}
	if !database.ValidRole(request.Role) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown role"})
		return
	}

	var user database.User
	if err := database.DB.First(&user, uint(userID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		log.Printf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	if err := database.DB.Model(&user).Update("role", request.Role).Error; err != nil {
		log.Printf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating role"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Role updated"})
}
