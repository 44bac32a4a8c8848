package models

import (
	"time"

	"gorm.io/gorm"
)

// Stock status a rep observed on a visit.
const (
	StockInStock      = "in_stock"
	StockLowStock     = "low_stock"
	StockOutOfStock   = "out_of_stock"
	StockAddedProduct = "added_product"
)

// Visit records one store check by a rep. SOSPercent is filled in later by the
// external shelf-analysis pipeline, not by this service.
type Visit struct {
	gorm.Model
	CompanyID   uint      `json:"company_id" gorm:"index"`
	StoreID     uint      `json:"store_id" gorm:"index"`
	Store       Store     `gorm:"foreignKey:StoreID" json:"-"`
	EmployeeID  uint      `json:"employee_id" gorm:"index"`
	StockStatus string    `json:"stock_status"`
	Note        string    `json:"note"`
	PhotoURL    string    `json:"photo_url"`
	SOSPercent  *float64  `json:"sos_percent,omitempty"`
	VisitedAt   time.Time `json:"visited_at"`
}

// ValidStockStatus reports whether s is one of the four observable statuses.
func ValidStockStatus(s string) bool {
	switch s {
	case StockInStock, StockLowStock, StockOutOfStock, StockAddedProduct:
		return true
	}
	return false
}
