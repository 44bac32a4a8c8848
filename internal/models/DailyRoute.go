package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"gorm.io/gorm"
)

// RoutePriority tags why a store made it onto a day's route.
const (
	RoutePriorityOverdue  = "overdue"
	RoutePriorityDueToday = "due_today"
	RoutePriorityNearby   = "high_value_nearby"
)

// Waypoint is one ordered stop inside a DailyRoute. Waypoints are embedded in
// the route row and addressable only by their sequence number.
type Waypoint struct {
	StoreID                  uint    `json:"store_id"`
	Name                     string  `json:"name"`
	Tier                     string  `json:"tier"`
	Latitude                 float64 `json:"latitude"`
	Longitude                float64 `json:"longitude"`
	Priority                 string  `json:"priority"` // "overdue" | "due_today" | "high_value_nearby"
	EstimatedArrival         string  `json:"estimated_arrival"` // "HH:MM" clock time
	EstimatedDurationMinutes int     `json:"estimated_duration_minutes"`
	Sequence                 int     `json:"sequence"`
	Visited                  bool    `json:"visited"`
}

// WaypointList stores the ordered waypoint collection as a single JSONB column.
type WaypointList []Waypoint

func (w WaypointList) Value() (driver.Value, error) {
	if w == nil {
		return "[]", nil
	}
	b, err := json.Marshal(w)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (w *WaypointList) Scan(value interface{}) error {
	if value == nil {
		*w = WaypointList{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("waypoint list: unsupported column type")
	}
	return json.Unmarshal(data, w)
}

// DailyRoute is the optimized visit plan for one (employee, date) pair.
// Re-optimizing replaces waypoints, totals and geometry wholesale. Version is
// an optimistic-concurrency stamp bumped on every waypoint rewrite.
type DailyRoute struct {
	gorm.Model
	CompanyID  uint   `json:"company_id" gorm:"index"`
	EmployeeID uint   `json:"employee_id" gorm:"uniqueIndex:idx_employee_date"`
	Date       string `json:"date" gorm:"uniqueIndex:idx_employee_date;size:10"` // YYYY-MM-DD

	Waypoints                WaypointList `json:"waypoints" gorm:"type:jsonb"`
	TotalDistanceKm          float64      `json:"total_distance_km"`
	EstimatedDurationMinutes int          `json:"estimated_duration_minutes"`
	Optimized                bool         `json:"optimized"`
	Version                  int          `json:"-" gorm:"default:1"`

	// Route path (start point plus stops) as a LINESTRING, stored WKB.
	Geometry []byte `json:"-" gorm:"type:bytea"`
}
