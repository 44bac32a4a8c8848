package routing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"shelftrack/internal/apperrors"
	"shelftrack/internal/geo"
	"shelftrack/internal/models"
)

type fakeSource struct {
	employees map[uint]bool
	due       []models.RevisitSchedule
	nearby    []models.Store
	stores    map[uint]models.Store
}

func (f *fakeSource) EmployeeExists(_ context.Context, _, employeeID uint) (bool, error) {
	return f.employees[employeeID], nil
}

func (f *fakeSource) DueSchedules(_ context.Context, _, employeeID uint, _ time.Time) ([]models.RevisitSchedule, error) {
	var out []models.RevisitSchedule
	for _, e := range f.due {
		if e.AssignedTo == employeeID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeSource) NearbyHighValueStores(_ context.Context, _ uint, lat, lng, radiusKm float64, limit int, exclude []uint) ([]models.Store, error) {
	excluded := map[uint]bool{}
	for _, id := range exclude {
		excluded[id] = true
	}
	var out []models.Store
	for _, s := range f.nearby {
		if excluded[s.ID] || len(out) == limit {
			continue
		}
		if geo.HaversineKm(lat, lng, s.Latitude, s.Longitude) <= radiusKm {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSource) StoresByIDs(_ context.Context, _ uint, ids []uint) ([]models.Store, error) {
	var out []models.Store
	for _, id := range ids {
		if s, ok := f.stores[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeRouteRepo struct {
	byKey    map[string]*models.DailyRoute
	byID     map[uint]*models.DailyRoute
	nextID   uint
	failPut  bool // force UpdateWaypoints to report a lost version race
	puts     int
}

func newFakeRouteRepo() *fakeRouteRepo {
	return &fakeRouteRepo{byKey: map[string]*models.DailyRoute{}, byID: map[uint]*models.DailyRoute{}, nextID: 1}
}

func routeKey(employeeID uint, date string) string {
	return fmt.Sprintf("%d|%s", employeeID, date)
}

func copyRoute(r *models.DailyRoute) *models.DailyRoute {
	cp := *r
	cp.Waypoints = append(models.WaypointList(nil), r.Waypoints...)
	return &cp
}

func (f *fakeRouteRepo) UpsertRoute(_ context.Context, route *models.DailyRoute) error {
	key := routeKey(route.EmployeeID, route.Date)
	if existing, ok := f.byKey[key]; ok {
		route.ID = existing.ID
		route.Version = existing.Version + 1
	} else {
		route.ID = f.nextID
		f.nextID++
		route.Version = 1
	}
	stored := copyRoute(route)
	f.byKey[key] = stored
	f.byID[route.ID] = stored
	return nil
}

func (f *fakeRouteRepo) GetRoute(_ context.Context, _, employeeID uint, date string) (*models.DailyRoute, error) {
	r, ok := f.byKey[routeKey(employeeID, date)]
	if !ok {
		return nil, nil
	}
	return copyRoute(r), nil
}

func (f *fakeRouteRepo) GetRouteByID(_ context.Context, _, employeeID, routeID uint) (*models.DailyRoute, error) {
	r, ok := f.byID[routeID]
	if !ok || r.EmployeeID != employeeID {
		return nil, nil
	}
	return copyRoute(r), nil
}

func (f *fakeRouteRepo) UpdateWaypoints(_ context.Context, route *models.DailyRoute) (bool, error) {
	f.puts++
	if f.failPut {
		return false, nil
	}
	stored, ok := f.byID[route.ID]
	if !ok || stored.Version != route.Version {
		return false, nil
	}
	stored.Waypoints = append(models.WaypointList(nil), route.Waypoints...)
	stored.Version++
	return true, nil
}

var routeDate = time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

func dueEntry(store models.Store, employeeID uint, nextVisit time.Time) models.RevisitSchedule {
	return models.RevisitSchedule{
		StoreID:       store.ID,
		Store:         store,
		AssignedTo:    employeeID,
		NextVisitDate: nextVisit,
	}
}

func storeAt(id uint, name, tier string, lat, lng float64) models.Store {
	s := models.Store{CompanyID: 1, Name: name, Tier: tier, Latitude: lat, Longitude: lng}
	s.ID = id
	return s
}

func TestOptimizeRouteNearestFirst(t *testing.T) {
	// Shanghai start; store1 is the closer of the two.
	startLat, startLng := 31.2304, 121.4737
	store1 := storeAt(1, "Nanjing Rd Hyper", models.TierA, 31.2350, 121.4800)
	store2 := storeAt(2, "Huaihai Mart", models.TierB, 31.2200, 121.4600)

	src := &fakeSource{
		employees: map[uint]bool{5: true},
		due: []models.RevisitSchedule{
			dueEntry(store1, 5, routeDate.AddDate(0, 0, -1)), // overdue
			dueEntry(store2, 5, routeDate),                   // due today
		},
	}
	repo := newFakeRouteRepo()
	o := NewOptimizer(src, repo)

	route, err := o.OptimizeRoute(context.Background(), 1, 5, routeDate, startLat, startLng, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(route.Waypoints) != 2 {
		t.Fatalf("waypoints = %d, want 2", len(route.Waypoints))
	}
	if route.Waypoints[0].StoreID != 1 || route.Waypoints[1].StoreID != 2 {
		t.Fatalf("visit order = %d,%d, want 1,2", route.Waypoints[0].StoreID, route.Waypoints[1].StoreID)
	}
	if route.Waypoints[0].Priority != models.RoutePriorityOverdue {
		t.Fatalf("store1 priority = %s, want overdue", route.Waypoints[0].Priority)
	}
	if route.Waypoints[1].Priority != models.RoutePriorityDueToday {
		t.Fatalf("store2 priority = %s, want due_today", route.Waypoints[1].Priority)
	}

	leg1 := geo.HaversineKm(startLat, startLng, store1.Latitude, store1.Longitude)
	leg2 := geo.HaversineKm(store1.Latitude, store1.Longitude, store2.Latitude, store2.Longitude)
	if math.Abs(route.TotalDistanceKm-(leg1+leg2)) > 1e-9 {
		t.Fatalf("total distance = %v, want %v", route.TotalDistanceKm, leg1+leg2)
	}
	if len(route.Geometry) == 0 {
		t.Fatalf("expected route geometry to be set")
	}
}

func TestOptimizeRouteSequencesCompleteAndUnique(t *testing.T) {
	stores := []models.Store{
		storeAt(1, "S1", models.TierA, 0.01, 0.00),
		storeAt(2, "S2", models.TierB, 0.05, 0.02),
		storeAt(3, "S3", models.TierC, 0.02, 0.04),
		storeAt(4, "S4", models.TierA, 0.09, 0.01),
	}
	var due []models.RevisitSchedule
	for _, s := range stores {
		due = append(due, dueEntry(s, 5, routeDate))
	}
	src := &fakeSource{employees: map[uint]bool{5: true}, due: due}
	o := NewOptimizer(src, newFakeRouteRepo())

	route, err := o.OptimizeRoute(context.Background(), 1, 5, routeDate, 0, 0, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(route.Waypoints) != len(stores) {
		t.Fatalf("waypoints = %d, want %d", len(route.Waypoints), len(stores))
	}
	seenSeq := map[int]bool{}
	seenStore := map[uint]bool{}
	for i, wp := range route.Waypoints {
		if wp.Sequence != i {
			t.Fatalf("waypoint %d has sequence %d", i, wp.Sequence)
		}
		if seenSeq[wp.Sequence] || seenStore[wp.StoreID] {
			t.Fatalf("duplicate sequence or store: %d / %d", wp.Sequence, wp.StoreID)
		}
		seenSeq[wp.Sequence] = true
		seenStore[wp.StoreID] = true
	}
}

func TestOptimizeRouteEpsilonPriorityTieBreak(t *testing.T) {
	// Both stores sit ~1.11 km from the start at equal distance; the overdue
	// one must win the near-tie even though the filler has a lower ID.
	filler := storeAt(1, "Filler", models.TierA, 0, 0.01)
	overdue := storeAt(2, "Overdue", models.TierC, 0.01, 0)

	src := &fakeSource{
		employees: map[uint]bool{5: true},
		due:       []models.RevisitSchedule{dueEntry(overdue, 5, routeDate.AddDate(0, 0, -3))},
		nearby:    []models.Store{filler},
	}
	o := NewOptimizer(src, newFakeRouteRepo())

	route, err := o.OptimizeRoute(context.Background(), 1, 5, routeDate, 0, 0, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(route.Waypoints) != 2 {
		t.Fatalf("waypoints = %d, want 2", len(route.Waypoints))
	}
	if route.Waypoints[0].StoreID != overdue.ID {
		t.Fatalf("first stop = %d, want overdue store %d", route.Waypoints[0].StoreID, overdue.ID)
	}
	if route.Waypoints[1].Priority != models.RoutePriorityNearby {
		t.Fatalf("filler priority = %s, want high_value_nearby", route.Waypoints[1].Priority)
	}
}

func TestOptimizeRouteDistanceBeatsPriority(t *testing.T) {
	// Far overdue store vs a close filler, well outside the epsilon band:
	// the nearest store wins.
	far := storeAt(1, "Far Overdue", models.TierA, 0.5, 0.5)
	near := storeAt(2, "Near Filler", models.TierB, 0.005, 0.005)

	src := &fakeSource{
		employees: map[uint]bool{5: true},
		due:       []models.RevisitSchedule{dueEntry(far, 5, routeDate.AddDate(0, 0, -2))},
		nearby:    []models.Store{near},
	}
	o := NewOptimizer(src, newFakeRouteRepo())
	o.NearbyRadiusKm = 100 // keep the filler in range for this geometry

	route, err := o.OptimizeRoute(context.Background(), 1, 5, routeDate, 0, 0, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if route.Waypoints[0].StoreID != near.ID {
		t.Fatalf("first stop = %d, want nearest store %d", route.Waypoints[0].StoreID, near.ID)
	}
}

func TestOptimizeRouteArrivalEstimates(t *testing.T) {
	store := storeAt(1, "Solo", models.TierB, 0.02, 0.02)
	src := &fakeSource{
		employees: map[uint]bool{5: true},
		due:       []models.RevisitSchedule{dueEntry(store, 5, routeDate)},
	}
	o := NewOptimizer(src, newFakeRouteRepo())

	route, err := o.OptimizeRoute(context.Background(), 1, 5, routeDate, 0, 0, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dist := geo.HaversineKm(0, 0, store.Latitude, store.Longitude)
	travel := time.Duration(dist / avgSpeedKmh * float64(time.Hour))
	wantArrival := time.Date(2026, 8, 30, dayStartHour, dayStartMinute, 0, 0, time.UTC).Add(travel).Format("15:04")

	wp := route.Waypoints[0]
	if wp.EstimatedArrival != wantArrival {
		t.Fatalf("arrival = %s, want %s", wp.EstimatedArrival, wantArrival)
	}
	if wp.EstimatedDurationMinutes != dwellMinutes(models.TierB) {
		t.Fatalf("dwell = %d, want %d", wp.EstimatedDurationMinutes, dwellMinutes(models.TierB))
	}
	wantTotal := int(math.Round(travel.Minutes())) + dwellMinutes(models.TierB)
	if route.EstimatedDurationMinutes != wantTotal {
		t.Fatalf("route duration = %d, want %d", route.EstimatedDurationMinutes, wantTotal)
	}
}

func TestOptimizeRouteUpsertIdempotent(t *testing.T) {
	store1 := storeAt(1, "S1", models.TierA, 0.01, 0)
	store2 := storeAt(2, "S2", models.TierB, 0.02, 0)
	src := &fakeSource{
		employees: map[uint]bool{5: true},
		due: []models.RevisitSchedule{
			dueEntry(store1, 5, routeDate),
			dueEntry(store2, 5, routeDate),
		},
		stores: map[uint]models.Store{1: store1, 2: store2},
	}
	repo := newFakeRouteRepo()
	o := NewOptimizer(src, repo)

	first, err := o.OptimizeRoute(context.Background(), 1, 5, routeDate, 0, 0, nil)
	if err != nil {
		t.Fatalf("first optimize: %v", err)
	}
	second, err := o.OptimizeRoute(context.Background(), 1, 5, routeDate, 0, 0, []uint{2})
	if err != nil {
		t.Fatalf("second optimize: %v", err)
	}

	if len(repo.byKey) != 1 {
		t.Fatalf("routes stored for (employee,date) = %d, want 1", len(repo.byKey))
	}
	if second.ID != first.ID {
		t.Fatalf("re-optimize created a new row: %d vs %d", second.ID, first.ID)
	}
	stored, _ := repo.GetRoute(context.Background(), 1, 5, routeDate.Format("2006-01-02"))
	if len(stored.Waypoints) != 1 || stored.Waypoints[0].StoreID != 2 {
		t.Fatalf("second call did not fully replace waypoints: %+v", stored.Waypoints)
	}
}

func TestOptimizeRouteExplicitUnknownStore(t *testing.T) {
	src := &fakeSource{
		employees: map[uint]bool{5: true},
		stores:    map[uint]models.Store{1: storeAt(1, "S1", models.TierA, 0.01, 0)},
	}
	o := NewOptimizer(src, newFakeRouteRepo())

	_, err := o.OptimizeRoute(context.Background(), 1, 5, routeDate, 0, 0, []uint{1, 99})
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestOptimizeRouteInvalidCoordinates(t *testing.T) {
	src := &fakeSource{employees: map[uint]bool{5: true}}
	o := NewOptimizer(src, newFakeRouteRepo())

	cases := [][2]float64{{91, 0}, {-91, 0}, {0, 181}, {0, -181}}
	for _, c := range cases {
		_, err := o.OptimizeRoute(context.Background(), 1, 5, routeDate, c[0], c[1], nil)
		if !errors.Is(err, apperrors.ErrInvalidInput) {
			t.Fatalf("coords %v: err = %v, want ErrInvalidInput", c, err)
		}
	}

	if _, err := o.OptimizeRoute(context.Background(), 1, 99, routeDate, 0, 0, nil); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("unknown employee: err = %v, want ErrNotFound", err)
	}
}

func TestMarkWaypointVisited(t *testing.T) {
	store1 := storeAt(1, "S1", models.TierA, 0.01, 0)
	store2 := storeAt(2, "S2", models.TierB, 0.02, 0)
	src := &fakeSource{
		employees: map[uint]bool{5: true},
		due: []models.RevisitSchedule{
			dueEntry(store1, 5, routeDate),
			dueEntry(store2, 5, routeDate),
		},
	}
	repo := newFakeRouteRepo()
	o := NewOptimizer(src, repo)

	route, err := o.OptimizeRoute(context.Background(), 1, 5, routeDate, 0, 0, nil)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}

	updated, err := o.MarkWaypointVisited(context.Background(), 1, 5, route.ID, 1)
	if err != nil {
		t.Fatalf("mark visited: %v", err)
	}
	if !updated.Waypoints[1].Visited {
		t.Fatalf("sequence 1 not marked visited")
	}
	if updated.Waypoints[0].Visited {
		t.Fatalf("sequence 0 was touched")
	}
	if updated.Waypoints[0].EstimatedArrival != route.Waypoints[0].EstimatedArrival {
		t.Fatalf("unrelated waypoint field changed")
	}

	// Idempotent on repeat.
	again, err := o.MarkWaypointVisited(context.Background(), 1, 5, route.ID, 1)
	if err != nil {
		t.Fatalf("second mark visited: %v", err)
	}
	if !again.Waypoints[1].Visited {
		t.Fatalf("idempotent call lost the visited flag")
	}

	if _, err := o.MarkWaypointVisited(context.Background(), 1, 5, route.ID, 42); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("missing sequence: err = %v, want ErrNotFound", err)
	}
	if _, err := o.MarkWaypointVisited(context.Background(), 1, 5, 999, 0); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("missing route: err = %v, want ErrNotFound", err)
	}
}

func TestMarkWaypointVisitedOtherEmployeeRoute(t *testing.T) {
	store1 := storeAt(1, "S1", models.TierA, 0.01, 0)
	src := &fakeSource{
		employees: map[uint]bool{5: true, 6: true},
		due:       []models.RevisitSchedule{dueEntry(store1, 5, routeDate)},
	}
	repo := newFakeRouteRepo()
	o := NewOptimizer(src, repo)

	route, err := o.OptimizeRoute(context.Background(), 1, 5, routeDate, 0, 0, nil)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}

	// Employee 6 cannot flip waypoints on employee 5's route.
	if _, err := o.MarkWaypointVisited(context.Background(), 1, 6, route.ID, 0); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("foreign route: err = %v, want ErrNotFound", err)
	}
	stored, _ := repo.GetRouteByID(context.Background(), 1, 5, route.ID)
	if stored.Waypoints[0].Visited {
		t.Fatalf("foreign employee mutated the route")
	}
}

func TestMarkWaypointVisitedConflictAfterRetries(t *testing.T) {
	store1 := storeAt(1, "S1", models.TierA, 0.01, 0)
	src := &fakeSource{
		employees: map[uint]bool{5: true},
		due:       []models.RevisitSchedule{dueEntry(store1, 5, routeDate)},
	}
	repo := newFakeRouteRepo()
	o := NewOptimizer(src, repo)

	route, err := o.OptimizeRoute(context.Background(), 1, 5, routeDate, 0, 0, nil)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}

	repo.failPut = true
	_, err = o.MarkWaypointVisited(context.Background(), 1, 5, route.ID, 0)
	if !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	if repo.puts != visitedWriteRetries {
		t.Fatalf("write attempts = %d, want %d", repo.puts, visitedWriteRetries)
	}
}

func TestOptimizeRouteEmptyCandidates(t *testing.T) {
	src := &fakeSource{employees: map[uint]bool{5: true}}
	o := NewOptimizer(src, newFakeRouteRepo())

	route, err := o.OptimizeRoute(context.Background(), 1, 5, routeDate, 0, 0, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(route.Waypoints) != 0 || route.TotalDistanceKm != 0 {
		t.Fatalf("empty day produced %d waypoints, %v km", len(route.Waypoints), route.TotalDistanceKm)
	}
}
