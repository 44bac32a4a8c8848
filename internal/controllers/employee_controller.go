package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"shelftrack/internal/config"
	"shelftrack/internal/middleware"
	"shelftrack/internal/models"
)

// ListEmployees returns the company's rep roster.
func ListEmployees(c *gin.Context) {
	var employees []models.Employee
	if err := config.DB.Preload("User").Where("company_id = ?", middleware.CompanyID(c)).Find(&employees).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Could not fetch employees"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"employees": employees})
}

// GetEmployee returns one rep profile.
func GetEmployee(c *gin.Context) {
	var employee models.Employee
	err := config.DB.Preload("User").
		Where("id = ? AND company_id = ?", c.Param("id"), middleware.CompanyID(c)).
		First(&employee).Error
	if err != nil {
		notFound(c, "Employee not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"employee": employee})
}

// UpdateEmployee edits a rep's profile fields.
func UpdateEmployee(c *gin.Context) {
	var employee models.Employee
	err := config.DB.Where("id = ? AND company_id = ?", c.Param("id"), middleware.CompanyID(c)).First(&employee).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			notFound(c, "Employee not found")
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		}
		return
	}

	var input struct {
		Phone     *string `json:"phone"`
		Territory *string `json:"territory"`
		Active    *bool   `json:"active"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}
	if input.Phone != nil {
		employee.Phone = *input.Phone
	}
	if input.Territory != nil {
		employee.Territory = *input.Territory
	}
	if input.Active != nil {
		employee.Active = *input.Active
	}

	if err := config.DB.Save(&employee).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Update failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"employee": employee})
}

// currentEmployee resolves the rep profile of the authenticated user.
func currentEmployee(c *gin.Context) (*models.Employee, bool) {
	var employee models.Employee
	err := config.DB.Where("user_id = ?", middleware.UserID(c)).First(&employee).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "No employee profile for this account"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		}
		return nil, false
	}
	return &employee, true
}
