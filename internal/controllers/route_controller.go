package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"shelftrack/internal/middleware"
	"shelftrack/internal/models"

	gjson "github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkb"
)

// RouteResponse mirrors models.DailyRoute with the path geometry rendered as
// a GeoJSON string for the dashboard map.
type RouteResponse struct {
	ID         uint           `json:"ID"`
	CreatedAt  time.Time      `json:"CreatedAt"`
	UpdatedAt  time.Time      `json:"UpdatedAt"`
	DeletedAt  gorm.DeletedAt `json:"DeletedAt,omitempty"`
	CompanyID  uint           `json:"company_id"`
	EmployeeID uint           `json:"employee_id"`
	Date       string         `json:"date"`

	Waypoints                models.WaypointList `json:"waypoints"`
	TotalDistanceKm          float64             `json:"total_distance_km"`
	EstimatedDurationMinutes int                 `json:"estimated_duration_minutes"`
	Optimized                bool                `json:"optimized"`
	Geometry                 string              `json:"geometry"`
}

func toRouteResponse(route *models.DailyRoute) RouteResponse {
	jsonGeom, _ := convertWKBToGeoJSON(route.Geometry)
	return RouteResponse{
		ID:                       route.ID,
		CreatedAt:                route.CreatedAt,
		UpdatedAt:                route.UpdatedAt,
		DeletedAt:                route.DeletedAt,
		CompanyID:                route.CompanyID,
		EmployeeID:               route.EmployeeID,
		Date:                     route.Date,
		Waypoints:                route.Waypoints,
		TotalDistanceKm:          route.TotalDistanceKm,
		EstimatedDurationMinutes: route.EstimatedDurationMinutes,
		Optimized:                route.Optimized,
		Geometry:                 jsonGeom,
	}
}

// convertWKBToGeoJSON converts WKB bytes into a GeoJSON string
func convertWKBToGeoJSON(wkbBytes []byte) (string, error) {
	if len(wkbBytes) == 0 {
		return "", nil
	}
	g, err := wkb.Unmarshal(wkbBytes)
	if err != nil {
		return "", err
	}
	b, err := gjson.Marshal(g)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func parseRouteDate(raw string) (time.Time, bool) {
	d, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// OptimizeRoute builds (or rebuilds) the authenticated rep's route for a day.
func OptimizeRoute(c *gin.Context) {
	var input struct {
		StartLat *float64 `json:"start_lat"`
		StartLng *float64 `json:"start_lng"`
		Date     string   `json:"date"`
		StoreIDs []uint   `json:"store_ids"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Invalid input: "+err.Error())
		return
	}
	if input.StartLat == nil || input.StartLng == nil {
		badRequest(c, "start_lat and start_lng are required")
		return
	}

	date := time.Now()
	if input.Date != "" {
		var ok bool
		if date, ok = parseRouteDate(input.Date); !ok {
			badRequest(c, "date must be YYYY-MM-DD")
			return
		}
	}

	employee, ok := currentEmployee(c)
	if !ok {
		return
	}

	route, err := optimizer.OptimizeRoute(c.Request.Context(), middleware.CompanyID(c), employee.ID,
		date, *input.StartLat, *input.StartLng, input.StoreIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"route": toRouteResponse(route)})
}

// GetTodayRoute returns the rep's route for the current date, if any.
func GetTodayRoute(c *gin.Context) {
	getRouteForDate(c, time.Now().Format("2006-01-02"))
}

// GetRouteByDate returns the rep's route for a specific date.
func GetRouteByDate(c *gin.Context) {
	raw := c.Param("date")
	if _, ok := parseRouteDate(raw); !ok {
		badRequest(c, "date must be YYYY-MM-DD")
		return
	}
	getRouteForDate(c, raw)
}

func getRouteForDate(c *gin.Context, date string) {
	employee, ok := currentEmployee(c)
	if !ok {
		return
	}
	route, err := repo.GetRoute(c.Request.Context(), middleware.CompanyID(c), employee.ID, date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	if route == nil {
		notFound(c, "No route for "+date)
		return
	}
	c.JSON(http.StatusOK, gin.H{"route": toRouteResponse(route)})
}

// MarkWaypointVisited flips the visited flag on one stop of the
// authenticated rep's own route.
func MarkWaypointVisited(c *gin.Context) {
	routeID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "Invalid route ID")
		return
	}
	sequence, err := strconv.Atoi(c.Param("sequence"))
	if err != nil || sequence < 0 {
		badRequest(c, "Invalid waypoint sequence")
		return
	}

	employee, ok := currentEmployee(c)
	if !ok {
		return
	}

	route, err := optimizer.MarkWaypointVisited(c.Request.Context(), middleware.CompanyID(c), employee.ID, uint(routeID), sequence)
	if err != nil {
		respondError(c, err)
		return
	}

	logrus.WithFields(logrus.Fields{"route_id": routeID, "sequence": sequence}).Info("Waypoint marked visited.")
	c.JSON(http.StatusOK, gin.H{"route": toRouteResponse(route)})
}

// GetEmployeeRoute lets managers read any rep's route for a date.
func GetEmployeeRoute(c *gin.Context) {
	employeeID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "Invalid employee ID")
		return
	}
	date := c.Param("date")
	if _, ok := parseRouteDate(date); !ok {
		badRequest(c, "date must be YYYY-MM-DD")
		return
	}

	route, err := repo.GetRoute(c.Request.Context(), middleware.CompanyID(c), uint(employeeID), date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	if route == nil {
		notFound(c, "No route for "+date)
		return
	}
	c.JSON(http.StatusOK, gin.H{"route": toRouteResponse(route)})
}
