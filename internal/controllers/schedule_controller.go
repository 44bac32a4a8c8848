package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"shelftrack/internal/config"
	"shelftrack/internal/middleware"
	"shelftrack/internal/models"
)

// ListSchedules returns the company's open revisit obligations. The optional
// due filter narrows to overdue, due today or due tomorrow; the last is what
// the reminder job scans.
func ListSchedules(c *gin.Context) {
	today := time.Now().Format("2006-01-02")

	q := config.DB.Preload("Store").
		Where("company_id = ? AND completed = ?", middleware.CompanyID(c), false)

	switch c.Query("due") {
	case "":
		// all open entries
	case "overdue":
		q = q.Where("next_visit_date < ?", today)
	case "today":
		q = q.Where("next_visit_date >= ? AND next_visit_date < ?", today, nextDay(today))
	case "tomorrow":
		tomorrow := nextDay(today)
		q = q.Where("next_visit_date >= ? AND next_visit_date < ?", tomorrow, nextDay(tomorrow))
	default:
		badRequest(c, "due must be overdue, today or tomorrow")
		return
	}

	var entries []models.RevisitSchedule
	if err := q.Order("next_visit_date asc").Find(&entries).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Could not fetch schedules"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedules": entries})
}

// ListMySchedules returns the authenticated rep's open entries, soonest first.
func ListMySchedules(c *gin.Context) {
	employee, ok := currentEmployee(c)
	if !ok {
		return
	}

	var entries []models.RevisitSchedule
	err := config.DB.Preload("Store").
		Where("company_id = ? AND assigned_to = ? AND completed = ?", middleware.CompanyID(c), employee.ID, false).
		Order("next_visit_date asc").
		Find(&entries).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Could not fetch schedules"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedules": entries})
}

func nextDay(date string) string {
	d, _ := time.ParseInLocation("2006-01-02", date, time.Local)
	return d.AddDate(0, 0, 1).Format("2006-01-02")
}
