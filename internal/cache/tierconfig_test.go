package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"shelftrack/internal/models"
)

type countingDirectory struct {
	configs []models.TierConfig
	calls   int
}

func (d *countingDirectory) CompanyExists(context.Context, uint) (bool, error) { return true, nil }

func (d *countingDirectory) GetStore(context.Context, uint, uint) (*models.Store, error) {
	return nil, nil
}

func (d *countingDirectory) GetTierConfigs(context.Context, uint) ([]models.TierConfig, error) {
	d.calls++
	return d.configs, nil
}

func newTestCache(t *testing.T, dir *countingDirectory) (*TierConfigCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewTierConfigCache(dir, rdb, time.Minute), mr
}

func TestTierConfigCacheHit(t *testing.T) {
	dir := &countingDirectory{configs: []models.TierConfig{
		{CompanyID: 1, Tier: models.TierA, RevisitDays: 7},
		{CompanyID: 1, Tier: models.TierB, RevisitDays: 14},
	}}
	c, _ := newTestCache(t, dir)
	ctx := context.Background()

	first, err := c.GetTierConfigs(ctx, 1)
	if err != nil {
		t.Fatalf("first read: %v", err)
	}
	second, err := c.GetTierConfigs(ctx, 1)
	if err != nil {
		t.Fatalf("second read: %v", err)
	}

	if dir.calls != 1 {
		t.Fatalf("directory calls = %d, want 1 (second read should hit cache)", dir.calls)
	}
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("config counts = %d/%d, want 2/2", len(first), len(second))
	}
	if second[0].Tier != models.TierA || second[0].RevisitDays != 7 {
		t.Fatalf("cached config mismatch: %+v", second[0])
	}
}

func TestTierConfigCacheInvalidate(t *testing.T) {
	dir := &countingDirectory{configs: []models.TierConfig{{CompanyID: 1, Tier: models.TierA, RevisitDays: 7}}}
	c, _ := newTestCache(t, dir)
	ctx := context.Background()

	if _, err := c.GetTierConfigs(ctx, 1); err != nil {
		t.Fatalf("seed read: %v", err)
	}
	c.Invalidate(ctx, 1)
	if _, err := c.GetTierConfigs(ctx, 1); err != nil {
		t.Fatalf("post-invalidate read: %v", err)
	}
	if dir.calls != 2 {
		t.Fatalf("directory calls = %d, want 2 after invalidation", dir.calls)
	}
}

func TestTierConfigCacheExpiry(t *testing.T) {
	dir := &countingDirectory{configs: []models.TierConfig{{CompanyID: 1, Tier: models.TierC, RevisitDays: 30}}}
	c, mr := newTestCache(t, dir)
	ctx := context.Background()

	if _, err := c.GetTierConfigs(ctx, 1); err != nil {
		t.Fatalf("seed read: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, err := c.GetTierConfigs(ctx, 1); err != nil {
		t.Fatalf("post-expiry read: %v", err)
	}
	if dir.calls != 2 {
		t.Fatalf("directory calls = %d, want 2 after TTL expiry", dir.calls)
	}
}

func TestTierConfigCacheNilClientPassThrough(t *testing.T) {
	dir := &countingDirectory{}
	c := NewTierConfigCache(dir, nil, 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := c.GetTierConfigs(ctx, 1); err != nil {
			t.Fatalf("pass-through read: %v", err)
		}
	}
	if dir.calls != 3 {
		t.Fatalf("directory calls = %d, want 3 with nil client", dir.calls)
	}
	c.Invalidate(ctx, 1) // must not panic
}
