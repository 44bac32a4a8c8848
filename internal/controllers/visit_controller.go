package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"shelftrack/internal/config"
	"shelftrack/internal/middleware"
	"shelftrack/internal/models"
)

// LogVisit records a store check by the authenticated rep and schedules the
// next revisit from the observed stock status.
func LogVisit(c *gin.Context) {
	var input struct {
		StoreID     uint     `json:"store_id" binding:"required"`
		StockStatus string   `json:"stock_status" binding:"required"`
		Note        string   `json:"note"`
		PhotoURL    string   `json:"photo_url"`
		SOSPercent  *float64 `json:"sos_percent"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Invalid input: "+err.Error())
		return
	}
	if !models.ValidStockStatus(input.StockStatus) {
		badRequest(c, "stock_status must be one of in_stock, low_stock, out_of_stock, added_product")
		return
	}

	employee, ok := currentEmployee(c)
	if !ok {
		return
	}
	companyID := middleware.CompanyID(c)

	var store models.Store
	if err := config.DB.Where("id = ? AND company_id = ?", input.StoreID, companyID).First(&store).Error; err != nil {
		notFound(c, "Store not found")
		return
	}

	visit := models.Visit{
		CompanyID:   companyID,
		StoreID:     input.StoreID,
		EmployeeID:  employee.ID,
		StockStatus: input.StockStatus,
		Note:        input.Note,
		PhotoURL:    input.PhotoURL,
		SOSPercent:  input.SOSPercent,
		VisitedAt:   time.Now(),
	}
	if err := config.DB.Create(&visit).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Create visit failed: " + err.Error()})
		return
	}

	entry, err := scheduler.ScheduleNextRevisit(c.Request.Context(), companyID, input.StoreID, employee.ID, input.StockStatus)
	if err != nil {
		// The visit row stays; the revisit schedule just did not advance.
		logrus.WithError(err).WithField("store_id", input.StoreID).Error("Revisit scheduling failed after visit.")
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"visit": visit, "next_revisit": entry})
}

// ListVisits returns the company's visit log, newest first, optionally
// filtered by store or employee.
func ListVisits(c *gin.Context) {
	q := config.DB.Preload("Store").Where("company_id = ?", middleware.CompanyID(c))
	if storeID := c.Query("store_id"); storeID != "" {
		q = q.Where("store_id = ?", storeID)
	}
	if employeeID := c.Query("employee_id"); employeeID != "" {
		q = q.Where("employee_id = ?", employeeID)
	}

	var visits []models.Visit
	if err := q.Order("visited_at desc").Limit(200).Find(&visits).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Could not fetch visits"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"visits": visits})
}
