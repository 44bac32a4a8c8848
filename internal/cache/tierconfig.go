// Package cache puts a redis read cache in front of the tier-config lookup,
// which the scheduler performs on every logged visit. Cache misses and redis
// outages fall through to the underlying directory.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"shelftrack/internal/models"
	"shelftrack/internal/scheduling"
)

const DefaultTierConfigTTL = 5 * time.Minute

// TierConfigCache wraps a scheduling.Directory and caches GetTierConfigs in
// redis. With a nil client it is a transparent pass-through.
type TierConfigCache struct {
	inner scheduling.Directory
	rdb   *redis.Client
	ttl   time.Duration
}

func NewTierConfigCache(inner scheduling.Directory, rdb *redis.Client, ttl time.Duration) *TierConfigCache {
	if ttl <= 0 {
		ttl = DefaultTierConfigTTL
	}
	return &TierConfigCache{inner: inner, rdb: rdb, ttl: ttl}
}

func (c *TierConfigCache) CompanyExists(ctx context.Context, companyID uint) (bool, error) {
	return c.inner.CompanyExists(ctx, companyID)
}

func (c *TierConfigCache) GetStore(ctx context.Context, companyID, storeID uint) (*models.Store, error) {
	return c.inner.GetStore(ctx, companyID, storeID)
}

func (c *TierConfigCache) GetTierConfigs(ctx context.Context, companyID uint) ([]models.TierConfig, error) {
	if c.rdb == nil {
		return c.inner.GetTierConfigs(ctx, companyID)
	}

	key := tierConfigKey(companyID)
	if raw, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var configs []models.TierConfig
		if err := json.Unmarshal(raw, &configs); err == nil {
			return configs, nil
		}
		// Corrupt entry; drop it and reload.
		c.rdb.Del(ctx, key)
	} else if err != redis.Nil {
		logrus.WithError(err).Debug("Tier config cache read failed, falling back to store.")
	}

	configs, err := c.inner.GetTierConfigs(ctx, companyID)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(configs); err == nil {
		if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			logrus.WithError(err).Debug("Tier config cache write failed.")
		}
	}
	return configs, nil
}

// Invalidate drops the cached configs for a company; called after an admin
// upserts tier rows.
func (c *TierConfigCache) Invalidate(ctx context.Context, companyID uint) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, tierConfigKey(companyID)).Err(); err != nil {
		logrus.WithError(err).Warn("Failed to invalidate tier config cache entry.")
	}
}

func tierConfigKey(companyID uint) string {
	return fmt.Sprintf("tiercfg:%d", companyID)
}
