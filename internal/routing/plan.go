package routing

import (
	"math"
	"time"

	"shelftrack/internal/geo"
	"shelftrack/internal/models"
)

const (
	// Stores within this distance of each other count as a tie, and the
	// candidate's priority breaks it. Beyond it, nearest always wins: the
	// planner minimizes total distance first and treats priority only as an
	// epsilon tie-break. An overdue store on the far side of town is visited
	// when the greedy walk gets there, not first.
	distanceEpsilonKm = 0.25

	avgSpeedKmh = 30.0

	dayStartHour   = 8
	dayStartMinute = 30
)

// Candidate is a store under consideration for a day's route, tagged with why
// it qualified.
type Candidate struct {
	Store    models.Store
	Priority string
}

func priorityRank(p string) int {
	switch p {
	case models.RoutePriorityOverdue:
		return 0
	case models.RoutePriorityDueToday:
		return 1
	default:
		return 2
	}
}

// dwellMinutes is the assumed in-store service time per tier.
func dwellMinutes(tier string) int {
	switch tier {
	case models.TierA:
		return 45
	case models.TierB:
		return 30
	default:
		return 20
	}
}

// buildWaypoints orders candidates by greedy nearest-neighbor from the start
// point and accumulates per-stop arrival estimates. Sequences are assigned
// 0..n-1 in visiting order. Returns the waypoints, the summed leg distance in
// km and the total travel+dwell minutes.
func buildWaypoints(startLat, startLng float64, candidates []Candidate, date time.Time) ([]models.Waypoint, float64, int) {
	remaining := make([]Candidate, len(candidates))
	copy(remaining, candidates)

	curLat, curLng := startLat, startLng
	clock := time.Date(date.Year(), date.Month(), date.Day(), dayStartHour, dayStartMinute, 0, 0, date.Location())

	waypoints := make([]models.Waypoint, 0, len(remaining))
	totalKm := 0.0
	totalTravelAndDwell := time.Duration(0)

	for len(remaining) > 0 {
		bestIdx := 0
		bestDist := geo.HaversineKm(curLat, curLng, remaining[0].Store.Latitude, remaining[0].Store.Longitude)

		for i := 1; i < len(remaining); i++ {
			c := remaining[i]
			d := geo.HaversineKm(curLat, curLng, c.Store.Latitude, c.Store.Longitude)

			if math.Abs(d-bestDist) <= distanceEpsilonKm {
				// Near-tie: higher priority wins, then shorter distance,
				// then lower store ID for determinism.
				best := remaining[bestIdx]
				if priorityRank(c.Priority) < priorityRank(best.Priority) ||
					(priorityRank(c.Priority) == priorityRank(best.Priority) &&
						(d < bestDist || (d == bestDist && c.Store.ID < best.Store.ID))) {
					bestIdx, bestDist = i, d
				}
			} else if d < bestDist {
				bestIdx, bestDist = i, d
			}
		}

		chosen := remaining[bestIdx]
		travel := time.Duration(bestDist / avgSpeedKmh * float64(time.Hour))
		clock = clock.Add(travel)

		dwell := dwellMinutes(chosen.Store.Tier)
		waypoints = append(waypoints, models.Waypoint{
			StoreID:                  chosen.Store.ID,
			Name:                     chosen.Store.Name,
			Tier:                     chosen.Store.Tier,
			Latitude:                 chosen.Store.Latitude,
			Longitude:                chosen.Store.Longitude,
			Priority:                 chosen.Priority,
			EstimatedArrival:         clock.Format("15:04"),
			EstimatedDurationMinutes: dwell,
			Sequence:                 len(waypoints),
			Visited:                  false,
		})

		clock = clock.Add(time.Duration(dwell) * time.Minute)
		totalKm += bestDist
		totalTravelAndDwell += travel + time.Duration(dwell)*time.Minute

		curLat, curLng = chosen.Store.Latitude, chosen.Store.Longitude
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	return waypoints, totalKm, int(math.Round(totalTravelAndDwell.Minutes()))
}
