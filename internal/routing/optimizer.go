// Package routing selects the stores a rep should visit on a given day and
// computes an ordered, time-estimated route over them.
package routing

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"

	"shelftrack/internal/apperrors"
	"shelftrack/internal/models"
)

const (
	DefaultNearbyRadiusKm = 5.0
	DefaultNearbyLimit    = 5

	visitedWriteRetries = 3
)

// CandidateSource is the read side the optimizer needs: the due schedule for
// an employee and the store directory.
type CandidateSource interface {
	EmployeeExists(ctx context.Context, companyID, employeeID uint) (bool, error)
	// DueSchedules returns uncompleted entries assigned to the employee with
	// next_visit_date on or before date, stores preloaded.
	DueSchedules(ctx context.Context, companyID, employeeID uint, date time.Time) ([]models.RevisitSchedule, error)
	// NearbyHighValueStores returns up to limit tier A/B stores within
	// radiusKm of the point, excluding the given store IDs, nearest first.
	NearbyHighValueStores(ctx context.Context, companyID uint, lat, lng, radiusKm float64, limit int, exclude []uint) ([]models.Store, error)
	StoresByIDs(ctx context.Context, companyID uint, ids []uint) ([]models.Store, error)
}

// RouteRepo persists daily routes. UpsertRoute replaces the route for the
// (employee, date) pair wholesale. UpdateWaypoints applies a version-checked
// waypoint rewrite and reports whether the write won.
type RouteRepo interface {
	UpsertRoute(ctx context.Context, route *models.DailyRoute) error
	GetRoute(ctx context.Context, companyID, employeeID uint, date string) (*models.DailyRoute, error)
	GetRouteByID(ctx context.Context, companyID, employeeID, routeID uint) (*models.DailyRoute, error)
	UpdateWaypoints(ctx context.Context, route *models.DailyRoute) (bool, error)
}

type Optimizer struct {
	src  CandidateSource
	repo RouteRepo

	NearbyRadiusKm float64
	NearbyLimit    int
}

func NewOptimizer(src CandidateSource, repo RouteRepo) *Optimizer {
	return &Optimizer{
		src:            src,
		repo:           repo,
		NearbyRadiusKm: DefaultNearbyRadiusKm,
		NearbyLimit:    DefaultNearbyLimit,
	}
}

// OptimizeRoute builds and persists the visit route for an employee on a
// date, starting from (startLat, startLng). When storeIDs is empty the
// candidate set is the employee's due/overdue schedule plus nearby tier A/B
// fillers; otherwise exactly the named stores are routed. Re-optimizing the
// same (employee, date) replaces the prior route.
func (o *Optimizer) OptimizeRoute(ctx context.Context, companyID, employeeID uint, date time.Time, startLat, startLng float64, storeIDs []uint) (*models.DailyRoute, error) {
	if !models.ValidCoordinates(startLat, startLng) {
		return nil, fmt.Errorf("optimize route: start coordinates (%v, %v): %w", startLat, startLng, apperrors.ErrInvalidInput)
	}

	exists, err := o.src.EmployeeExists(ctx, companyID, employeeID)
	if err != nil {
		return nil, fmt.Errorf("optimize route: employee lookup: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("optimize route: employee %d: %w", employeeID, apperrors.ErrNotFound)
	}

	candidates, err := o.selectCandidates(ctx, companyID, employeeID, date, startLat, startLng, storeIDs)
	if err != nil {
		return nil, err
	}

	waypoints, totalKm, totalMinutes := buildWaypoints(startLat, startLng, candidates, date)

	route := &models.DailyRoute{
		CompanyID:                companyID,
		EmployeeID:               employeeID,
		Date:                     date.Format("2006-01-02"),
		Waypoints:                waypoints,
		TotalDistanceKm:          totalKm,
		EstimatedDurationMinutes: totalMinutes,
		Optimized:                true,
		Geometry:                 routePath(startLat, startLng, waypoints),
	}

	if err := o.repo.UpsertRoute(ctx, route); err != nil {
		return nil, fmt.Errorf("optimize route: persist: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"employee_id":       employeeID,
		"date":              route.Date,
		"waypoints":         len(waypoints),
		"total_distance_km": totalKm,
	}).Info("Daily route optimized.")

	return route, nil
}

// selectCandidates gathers the day's store set. Due schedule entries are
// tagged overdue or due_today; filler stores are tagged high_value_nearby.
func (o *Optimizer) selectCandidates(ctx context.Context, companyID, employeeID uint, date time.Time, startLat, startLng float64, storeIDs []uint) ([]Candidate, error) {
	due, err := o.src.DueSchedules(ctx, companyID, employeeID, date)
	if err != nil {
		return nil, fmt.Errorf("optimize route: due schedules: %w", err)
	}

	day := date.Format("2006-01-02")
	dueTag := make(map[uint]string, len(due))
	for _, entry := range due {
		tag := models.RoutePriorityDueToday
		if entry.NextVisitDate.Format("2006-01-02") < day {
			tag = models.RoutePriorityOverdue
		}
		// Keep the more urgent tag if the store somehow appears twice.
		if prev, ok := dueTag[entry.StoreID]; !ok || priorityRank(tag) < priorityRank(prev) {
			dueTag[entry.StoreID] = tag
		}
	}

	if len(storeIDs) > 0 {
		stores, err := o.src.StoresByIDs(ctx, companyID, storeIDs)
		if err != nil {
			return nil, fmt.Errorf("optimize route: stores by id: %w", err)
		}
		if len(stores) != len(dedup(storeIDs)) {
			return nil, fmt.Errorf("optimize route: unknown store in list: %w", apperrors.ErrNotFound)
		}
		candidates := make([]Candidate, 0, len(stores))
		for _, s := range stores {
			tag, ok := dueTag[s.ID]
			if !ok {
				tag = models.RoutePriorityNearby
			}
			candidates = append(candidates, Candidate{Store: s, Priority: tag})
		}
		return candidates, nil
	}

	candidates := make([]Candidate, 0, len(due)+o.NearbyLimit)
	included := make([]uint, 0, len(due))
	for _, entry := range due {
		if entry.Store.ID == 0 {
			continue
		}
		candidates = append(candidates, Candidate{Store: entry.Store, Priority: dueTag[entry.StoreID]})
		included = append(included, entry.StoreID)
	}

	fillers, err := o.src.NearbyHighValueStores(ctx, companyID, startLat, startLng, o.NearbyRadiusKm, o.NearbyLimit, included)
	if err != nil {
		return nil, fmt.Errorf("optimize route: nearby stores: %w", err)
	}
	for _, s := range fillers {
		candidates = append(candidates, Candidate{Store: s, Priority: models.RoutePriorityNearby})
	}

	return candidates, nil
}

// MarkWaypointVisited flips the visited flag on one waypoint and rewrites the
// collection under an optimistic version check, retrying on lost races. The
// route must belong to the given employee.
func (o *Optimizer) MarkWaypointVisited(ctx context.Context, companyID, employeeID, routeID uint, sequence int) (*models.DailyRoute, error) {
	for attempt := 0; attempt < visitedWriteRetries; attempt++ {
		route, err := o.repo.GetRouteByID(ctx, companyID, employeeID, routeID)
		if err != nil {
			return nil, fmt.Errorf("mark visited: route lookup: %w", err)
		}
		if route == nil {
			return nil, fmt.Errorf("mark visited: route %d: %w", routeID, apperrors.ErrNotFound)
		}

		idx := -1
		for i := range route.Waypoints {
			if route.Waypoints[i].Sequence == sequence {
				idx = i
				break
			}
		}
		if idx == -1 {
			return nil, fmt.Errorf("mark visited: route %d sequence %d: %w", routeID, sequence, apperrors.ErrNotFound)
		}
		if route.Waypoints[idx].Visited {
			return route, nil
		}

		route.Waypoints[idx].Visited = true
		applied, err := o.repo.UpdateWaypoints(ctx, route)
		if err != nil {
			return nil, fmt.Errorf("mark visited: persist: %w", err)
		}
		if applied {
			return route, nil
		}
		logrus.WithFields(logrus.Fields{
			"route_id": routeID,
			"sequence": sequence,
			"attempt":  attempt + 1,
		}).Warn("Waypoint write lost a version race, retrying.")
	}
	return nil, fmt.Errorf("mark visited: route %d contended: %w", routeID, apperrors.ErrConflict)
}

// routePath encodes start point plus stops as a WKB LINESTRING for the
// dashboard map. Routes with fewer than one stop carry no geometry.
func routePath(startLat, startLng float64, waypoints []models.Waypoint) []byte {
	if len(waypoints) == 0 {
		return nil
	}
	coords := make([]geom.Coord, 0, len(waypoints)+1)
	coords = append(coords, geom.Coord{startLng, startLat})
	for _, wp := range waypoints {
		coords = append(coords, geom.Coord{wp.Longitude, wp.Latitude})
	}
	line := geom.NewLineString(geom.XY).MustSetCoords(coords)
	line.SetSRID(4326)
	b, err := wkb.Marshal(line, binary.LittleEndian)
	if err != nil {
		logrus.WithError(err).Warn("Failed to encode route geometry, storing none.")
		return nil
	}
	return b
}

func dedup(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
