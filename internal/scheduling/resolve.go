package scheduling

import "shelftrack/internal/models"

// Cadence defaults applied when a company has not configured its tiers or a
// store carries no tier letter.
var defaultRevisitDays = map[string]int{
	models.TierA: 7,
	models.TierB: 14,
	models.TierC: 30,
}

// ResolveTier returns the store's tier, defaulting to C when unset or unknown.
func ResolveTier(tier string) string {
	if models.ValidTier(tier) {
		return tier
	}
	return models.TierC
}

// ResolveTierDays returns the revisit cadence in days for a tier, preferring
// the company's configured value and falling back to the built-in default.
// Configured rows with a non-positive cadence are ignored.
func ResolveTierDays(configs []models.TierConfig, tier string) int {
	tier = ResolveTier(tier)
	for _, c := range configs {
		if c.Tier == tier && c.RevisitDays > 0 {
			return c.RevisitDays
		}
	}
	return defaultRevisitDays[tier]
}
