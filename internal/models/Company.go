// internal/models/company.go
package models

import (
	"gorm.io/gorm"
)

// Company is the tenant entity. Every store, employee, visit and schedule
// entry belongs to exactly one company.
type Company struct {
	gorm.Model
	Name    string `json:"name" binding:"required"`
	Email   string `gorm:"unique;not null" json:"email" binding:"required,email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`

	Stores      []Store      `gorm:"foreignKey:CompanyID" json:"stores,omitempty"`
	Employees   []Employee   `gorm:"foreignKey:CompanyID" json:"employees,omitempty"`
	TierConfigs []TierConfig `gorm:"foreignKey:CompanyID" json:"tier_configs,omitempty"`
}
