package models

import "gorm.io/gorm"

type User struct {
	gorm.Model
	Name      string `json:"name"`
	Email     string `json:"email" gorm:"unique"`
	Password  string `json:"-"`
	Phone     string `json:"phone"`
	Role      string `json:"role"` // "rep", "manager", "admin"
	CompanyID uint   `json:"company_id" gorm:"index"`

	// Rep-specific relation; managers and admins have no Employee profile
	Employee *Employee `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"employee,omitempty"`
}
