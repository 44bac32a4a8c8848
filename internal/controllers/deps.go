package controllers

import (
	"shelftrack/internal/cache"
	"shelftrack/internal/config"
	"shelftrack/internal/repository"
	"shelftrack/internal/routing"
	"shelftrack/internal/scheduling"
)

// Engine singletons wired over the global DB handle. Init must run after
// config.InitDB (and InitRedis, when caching is wanted).
var (
	repo      *repository.Repo
	tierCache *cache.TierConfigCache
	scheduler *scheduling.Scheduler
	optimizer *routing.Optimizer
)

func Init() {
	repo = repository.New(config.DB)
	tierCache = cache.NewTierConfigCache(repo, config.Redis, cache.DefaultTierConfigTTL)
	scheduler = scheduling.NewScheduler(tierCache, repo)
	optimizer = routing.NewOptimizer(repo, repo)
}
