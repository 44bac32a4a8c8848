package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"shelftrack/internal/config"
	"shelftrack/internal/middleware"
	"shelftrack/internal/models"
	"shelftrack/internal/routing"
)

// CreateStore registers a new store for the caller's company.
func CreateStore(c *gin.Context) {
	var input struct {
		Name      string  `json:"name" binding:"required"`
		Tier      string  `json:"tier"`
		Type      string  `json:"type"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Address   string  `json:"address"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Invalid input: "+err.Error())
		return
	}
	if input.Tier != "" && !models.ValidTier(input.Tier) {
		badRequest(c, "tier must be A, B or C")
		return
	}
	if !models.ValidCoordinates(input.Latitude, input.Longitude) {
		badRequest(c, "coordinates out of range")
		return
	}

	store := models.Store{
		CompanyID: middleware.CompanyID(c),
		Name:      input.Name,
		Tier:      input.Tier,
		Type:      input.Type,
		Latitude:  input.Latitude,
		Longitude: input.Longitude,
		Address:   input.Address,
	}
	if err := config.DB.Create(&store).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Create store failed: " + err.Error()})
		return
	}

	logrus.WithFields(logrus.Fields{"store_id": store.ID, "company_id": store.CompanyID}).Info("Store created.")
	c.JSON(http.StatusCreated, gin.H{"store": store})
}

// ListStores returns all stores for the caller's company.
func ListStores(c *gin.Context) {
	var stores []models.Store
	if err := config.DB.Where("company_id = ?", middleware.CompanyID(c)).Find(&stores).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Could not fetch stores"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stores": stores})
}

// GetStore returns a single store belonging to the caller's company.
func GetStore(c *gin.Context) {
	var store models.Store
	if err := config.DB.Where("id = ? AND company_id = ?", c.Param("id"), middleware.CompanyID(c)).First(&store).Error; err != nil {
		notFound(c, "Store not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"store": store})
}

// UpdateStore modifies tier, location or metadata on an existing store.
func UpdateStore(c *gin.Context) {
	var store models.Store
	if err := config.DB.Where("id = ? AND company_id = ?", c.Param("id"), middleware.CompanyID(c)).First(&store).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			notFound(c, "Store not found")
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		}
		return
	}

	var input struct {
		Name      *string  `json:"name"`
		Tier      *string  `json:"tier"`
		Type      *string  `json:"type"`
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
		Address   *string  `json:"address"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}

	if input.Tier != nil {
		if !models.ValidTier(*input.Tier) {
			badRequest(c, "tier must be A, B or C")
			return
		}
		store.Tier = *input.Tier
	}
	if input.Latitude != nil || input.Longitude != nil {
		lat, lng := store.Latitude, store.Longitude
		if input.Latitude != nil {
			lat = *input.Latitude
		}
		if input.Longitude != nil {
			lng = *input.Longitude
		}
		if !models.ValidCoordinates(lat, lng) {
			badRequest(c, "coordinates out of range")
			return
		}
		store.Latitude, store.Longitude = lat, lng
	}
	if input.Name != nil {
		store.Name = *input.Name
	}
	if input.Type != nil {
		store.Type = *input.Type
	}
	if input.Address != nil {
		store.Address = *input.Address
	}

	if err := config.DB.Save(&store).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Update failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"store": store})
}

// DeleteStore soft-deletes a store; schedule history stays intact.
func DeleteStore(c *gin.Context) {
	res := config.DB.Where("id = ? AND company_id = ?", c.Param("id"), middleware.CompanyID(c)).Delete(&models.Store{})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": res.Error.Error()})
		return
	}
	if res.RowsAffected == 0 {
		notFound(c, "Store not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Store deleted successfully"})
}

// NearbyStores returns high-value (tier A/B) stores around a point, for the
// dashboard map and manual route building.
func NearbyStores(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil || !models.ValidCoordinates(lat, lng) {
		badRequest(c, "valid lat and lng query parameters are required")
		return
	}

	radiusKm := routing.DefaultNearbyRadiusKm
	if raw := c.Query("radius_km"); raw != "" {
		r, err := strconv.ParseFloat(raw, 64)
		if err != nil || r <= 0 || r > 100 {
			badRequest(c, "radius_km must be in (0, 100]")
			return
		}
		radiusKm = r
	}
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			badRequest(c, "limit must be in [1, 100]")
			return
		}
		limit = n
	}

	stores, err := repo.NearbyHighValueStores(c.Request.Context(), middleware.CompanyID(c), lat, lng, radiusKm, limit, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stores": stores})
}
