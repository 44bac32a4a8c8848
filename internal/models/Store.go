package models

import (
	"gorm.io/gorm"
)

// Store tiers drive revisit cadence: A=hypermarket, B=convenience, C=small shop.
const (
	TierA = "A"
	TierB = "B"
	TierC = "C"
)

// Store is a retail outlet a rep visits. Coordinates are WGS84 degrees.
// Stores are never hard-deleted; gorm's DeletedAt soft-manages removal.
type Store struct {
	gorm.Model
	CompanyID uint    `json:"company_id" gorm:"index"`
	Name      string  `json:"name" binding:"required"`
	Tier      string  `json:"tier"` // "A" | "B" | "C"
	Type      string  `json:"type"` // e.g. "supermarket", "kiosk"
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
}

// ValidTier reports whether t is one of the three known tier letters.
func ValidTier(t string) bool {
	return t == TierA || t == TierB || t == TierC
}

// ValidCoordinates reports whether lat/lng fall inside WGS84 degree ranges.
func ValidCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
