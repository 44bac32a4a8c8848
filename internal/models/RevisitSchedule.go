package models

import (
	"time"

	"gorm.io/gorm"
)

// Revisit priorities and reasons written by the scheduler.
const (
	PriorityHigh   = "high"
	PriorityNormal = "normal"
	PriorityLow    = "low"

	ReasonScheduled  = "scheduled"
	ReasonOOS        = "oos_detected"
	ReasonLowStock   = "low_stock"
	ReasonNewProduct = "new_product"
)

// RevisitSchedule is one obligation to return to a store by a date.
// At most one uncompleted row exists per store: the scheduler marks all prior
// open rows completed in the same transaction that inserts the new one.
type RevisitSchedule struct {
	gorm.Model
	CompanyID     uint      `json:"company_id" gorm:"index"`
	StoreID       uint      `json:"store_id" gorm:"index"`
	Store         Store     `gorm:"foreignKey:StoreID" json:"store,omitempty"`
	NextVisitDate time.Time `json:"next_visit_date" gorm:"index"`
	Priority      string    `json:"priority"` // "high" | "normal" | "low"
	Reason        string    `json:"reason"`   // "scheduled" | "oos_detected" | "low_stock" | "new_product"
	AssignedTo    uint      `json:"assigned_to"`
	Completed     bool      `json:"completed" gorm:"index;default:false"`
}
