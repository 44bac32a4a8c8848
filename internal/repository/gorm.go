// Package repository backs the scheduling and routing engines with GORM over
// Postgres. It is the only place the engines' data-store contracts touch SQL.
package repository

import (
	"context"
	"errors"
	"sort"
	"time"

	"gorm.io/gorm"

	"shelftrack/internal/geo"
	"shelftrack/internal/models"
)

type Repo struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// --- scheduling.Directory ---

func (r *Repo) CompanyExists(ctx context.Context, companyID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Company{}).Where("id = ?", companyID).Count(&count).Error
	return count > 0, err
}

func (r *Repo) GetStore(ctx context.Context, companyID, storeID uint) (*models.Store, error) {
	var store models.Store
	err := r.db.WithContext(ctx).Where("id = ? AND company_id = ?", storeID, companyID).First(&store).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &store, nil
}

func (r *Repo) GetTierConfigs(ctx context.Context, companyID uint) ([]models.TierConfig, error) {
	var configs []models.TierConfig
	err := r.db.WithContext(ctx).Where("company_id = ?", companyID).Find(&configs).Error
	return configs, err
}

// --- scheduling.ScheduleRepo ---

// ReplaceOpenEntry retires every uncompleted entry for the store and inserts
// the new one inside a single transaction, so readers never observe zero or
// two open entries for a store.
func (r *Repo) ReplaceOpenEntry(ctx context.Context, entry *models.RevisitSchedule) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.RevisitSchedule{}).
			Where("store_id = ? AND completed = ?", entry.StoreID, false).
			Update("completed", true).Error; err != nil {
			return err
		}
		return tx.Create(entry).Error
	})
}

// --- routing.CandidateSource ---

func (r *Repo) EmployeeExists(ctx context.Context, companyID, employeeID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Employee{}).
		Where("id = ? AND company_id = ?", employeeID, companyID).Count(&count).Error
	return count > 0, err
}

func (r *Repo) DueSchedules(ctx context.Context, companyID, employeeID uint, date time.Time) ([]models.RevisitSchedule, error) {
	endOfDay := time.Date(date.Year(), date.Month(), date.Day(), 23, 59, 59, 0, date.Location())
	var entries []models.RevisitSchedule
	err := r.db.WithContext(ctx).Preload("Store").
		Where("company_id = ? AND assigned_to = ? AND completed = ? AND next_visit_date <= ?",
			companyID, employeeID, false, endOfDay).
		Order("next_visit_date asc").
		Find(&entries).Error
	return entries, err
}

// NearbyHighValueStores pulls the company's tier A/B stores inside the
// coordinate bounding box of the radius and filters by true distance in Go.
// Store counts per company are small enough that a PostGIS index query is not
// worth the coupling here.
func (r *Repo) NearbyHighValueStores(ctx context.Context, companyID uint, lat, lng, radiusKm float64, limit int, exclude []uint) ([]models.Store, error) {
	latDelta := radiusKm / 111.0
	lngDelta := radiusKm / 85.0 // conservative away from the poles

	q := r.db.WithContext(ctx).
		Where("company_id = ? AND tier IN ?", companyID, []string{models.TierA, models.TierB}).
		Where("latitude BETWEEN ? AND ?", lat-latDelta, lat+latDelta).
		Where("longitude BETWEEN ? AND ?", lng-lngDelta, lng+lngDelta)
	if len(exclude) > 0 {
		q = q.Where("id NOT IN ?", exclude)
	}

	var boxed []models.Store
	if err := q.Find(&boxed).Error; err != nil {
		return nil, err
	}

	within := filterByRadius(boxed, lat, lng, radiusKm)
	if len(within) > limit {
		within = within[:limit]
	}
	return within, nil
}

func (r *Repo) StoresByIDs(ctx context.Context, companyID uint, ids []uint) ([]models.Store, error) {
	var stores []models.Store
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND id IN ?", companyID, ids).
		Find(&stores).Error
	return stores, err
}

// filterByRadius keeps stores within radiusKm of (lat, lng), nearest first.
func filterByRadius(stores []models.Store, lat, lng, radiusKm float64) []models.Store {
	type scored struct {
		store models.Store
		dist  float64
	}
	within := make([]scored, 0, len(stores))
	for _, s := range stores {
		if d := geo.HaversineKm(lat, lng, s.Latitude, s.Longitude); d <= radiusKm {
			within = append(within, scored{store: s, dist: d})
		}
	}
	sort.Slice(within, func(i, j int) bool { return within[i].dist < within[j].dist })
	out := make([]models.Store, len(within))
	for i, s := range within {
		out[i] = s.store
	}
	return out
}

// --- routing.RouteRepo ---

// UpsertRoute replaces the route for the (employee, date) pair. The prior
// row's identity is kept; its waypoints, totals and geometry are overwritten.
func (r *Repo) UpsertRoute(ctx context.Context, route *models.DailyRoute) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.DailyRoute
		err := tx.Where("employee_id = ? AND date = ?", route.EmployeeID, route.Date).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			route.Version = 1
			return tx.Create(route).Error
		}
		if err != nil {
			return err
		}
		route.ID = existing.ID
		route.CreatedAt = existing.CreatedAt
		route.Version = existing.Version + 1
		return tx.Model(&existing).
			Updates(map[string]interface{}{
				"waypoints":                  route.Waypoints,
				"total_distance_km":          route.TotalDistanceKm,
				"estimated_duration_minutes": route.EstimatedDurationMinutes,
				"optimized":                  route.Optimized,
				"version":                    route.Version,
				"geometry":                   route.Geometry,
				"company_id":                 route.CompanyID,
			}).Error
	})
}

func (r *Repo) GetRoute(ctx context.Context, companyID, employeeID uint, date string) (*models.DailyRoute, error) {
	var route models.DailyRoute
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND employee_id = ? AND date = ?", companyID, employeeID, date).
		First(&route).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &route, nil
}

func (r *Repo) GetRouteByID(ctx context.Context, companyID, employeeID, routeID uint) (*models.DailyRoute, error) {
	var route models.DailyRoute
	err := r.db.WithContext(ctx).
		Where("id = ? AND company_id = ? AND employee_id = ?", routeID, companyID, employeeID).
		First(&route).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &route, nil
}

// UpdateWaypoints rewrites the waypoint collection guarded by the version
// stamp. A zero rows-affected result means another writer won the race.
func (r *Repo) UpdateWaypoints(ctx context.Context, route *models.DailyRoute) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.DailyRoute{}).
		Where("id = ? AND version = ?", route.ID, route.Version).
		Updates(map[string]interface{}{
			"waypoints": route.Waypoints,
			"version":   route.Version + 1,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
