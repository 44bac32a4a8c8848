package models

import (
	"gorm.io/gorm"
)

// TierConfig maps one tier letter to a revisit cadence in days for a company.
// The (company_id, tier) pair is unique; admins upsert all three rows together.
type TierConfig struct {
	gorm.Model
	CompanyID   uint   `json:"company_id" gorm:"uniqueIndex:idx_company_tier"`
	Tier        string `json:"tier" gorm:"uniqueIndex:idx_company_tier;size:1" binding:"required"`
	RevisitDays int    `json:"revisit_days" binding:"required"`
}
