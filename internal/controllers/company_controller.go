package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"shelftrack/internal/config"
	"shelftrack/internal/middleware"
	"shelftrack/internal/models"
	"shelftrack/internal/scheduling"
)

// ownCompanyID parses the :id parameter and rejects cross-tenant access.
func ownCompanyID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "Invalid company ID")
		return 0, false
	}
	if uint(id) != middleware.CompanyID(c) {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "Cannot access another company"})
		return 0, false
	}
	return uint(id), true
}

// GetCompany retrieves the caller's Company
func GetCompany(c *gin.Context) {
	id, ok := ownCompanyID(c)
	if !ok {
		return
	}
	var company models.Company
	if err := config.DB.Preload("TierConfigs").First(&company, id).Error; err != nil {
		notFound(c, "Company not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"company": company})
}

// UpdateCompany modifies the caller's Company
func UpdateCompany(c *gin.Context) {
	id, ok := ownCompanyID(c)
	if !ok {
		return
	}
	var company models.Company
	if err := config.DB.First(&company, id).Error; err != nil {
		notFound(c, "Company not found")
		return
	}

	var input struct {
		Name    *string `json:"name"`
		Email   *string `json:"email"`
		Phone   *string `json:"phone"`
		Address *string `json:"address"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}
	if input.Name != nil {
		company.Name = *input.Name
	}
	if input.Email != nil {
		company.Email = *input.Email
	}
	if input.Phone != nil {
		company.Phone = *input.Phone
	}
	if input.Address != nil {
		company.Address = *input.Address
	}

	if err := config.DB.Save(&company).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "update failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"company": company})
}

type tierConfigInput struct {
	Tiers []struct {
		Tier        string `json:"tier" binding:"required"`
		RevisitDays int    `json:"revisit_days" binding:"required"`
	} `json:"tiers" binding:"required"`
}

// SetTierConfig upserts the revisit cadence for a company's tiers and drops
// the cached copy the scheduler reads.
func SetTierConfig(c *gin.Context) {
	companyID, ok := ownCompanyID(c)
	if !ok {
		return
	}

	var input tierConfigInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}
	for _, t := range input.Tiers {
		if !models.ValidTier(t.Tier) {
			badRequest(c, "tier must be A, B or C")
			return
		}
		if t.RevisitDays < 1 || t.RevisitDays > 90 {
			badRequest(c, "revisit_days must be between 1 and 90")
			return
		}
	}

	tx := config.DB.Begin()
	if tx.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to start transaction"})
		return
	}
	for _, t := range input.Tiers {
		var existing models.TierConfig
		err := tx.Where("company_id = ? AND tier = ?", companyID, t.Tier).First(&existing).Error
		if err == nil {
			existing.RevisitDays = t.RevisitDays
			err = tx.Save(&existing).Error
		} else {
			err = tx.Create(&models.TierConfig{
				CompanyID:   companyID,
				Tier:        t.Tier,
				RevisitDays: t.RevisitDays,
			}).Error
		}
		if err != nil {
			tx.Rollback()
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Tier config upsert failed: " + err.Error()})
			return
		}
	}
	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Transaction commit failed: " + err.Error()})
		return
	}

	tierCache.Invalidate(c.Request.Context(), companyID)

	var configs []models.TierConfig
	config.DB.Where("company_id = ?", companyID).Order("tier asc").Find(&configs)
	logrus.WithField("company_id", companyID).Info("Tier configuration updated.")
	c.JSON(http.StatusOK, gin.H{"tier_configs": configs})
}

// GetTierConfig returns the company's configured cadence with defaults
// filled in for unconfigured tiers, so the dashboard always shows three rows.
func GetTierConfig(c *gin.Context) {
	companyID := middleware.CompanyID(c)

	var configs []models.TierConfig
	if err := config.DB.Where("company_id = ?", companyID).Find(&configs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	resolved := gin.H{}
	for _, tier := range []string{models.TierA, models.TierB, models.TierC} {
		resolved[tier] = scheduling.ResolveTierDays(configs, tier)
	}
	c.JSON(http.StatusOK, gin.H{"tier_configs": configs, "resolved_days": resolved})
}
