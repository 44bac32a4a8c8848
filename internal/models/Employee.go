// internal/models/employee.go
package models

import (
	"gorm.io/gorm"
)

// Employee is the field-rep profile attached to a User with role "rep".
type Employee struct {
	gorm.Model
	UserID    uint    `json:"user_id" gorm:"unique"` // Foreign key to User
	User      User    `gorm:"foreignKey:UserID" json:"-"`
	CompanyID uint    `json:"company_id" gorm:"index"`
	Company   Company `gorm:"foreignKey:CompanyID" json:"-"`
	Phone     string  `json:"phone"`
	Territory string  `json:"territory"`
	Active    bool    `json:"active" gorm:"default:true"`
}
