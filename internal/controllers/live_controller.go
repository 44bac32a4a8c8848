package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"shelftrack/internal/config"
	"shelftrack/internal/geo"
	"shelftrack/internal/middleware"
	"shelftrack/internal/models"
)

// upgrader configures the WebSocket connection.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all for development (restrict in production!)
	},
}

// Reps emit a fix at most this far from a waypoint to count as on-site.
const arrivalThresholdMeters = 150

// repFix is the payload the mobile app streams while a rep is in the field.
type repFix struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy"`
	Speed     float64   `json:"speed"`
	Timestamp time.Time `json:"timestamp"`
}

// trackHub fans rep position updates out to the manager dashboards of the
// same company.
type trackHub struct {
	companyClients map[uint]map[*websocket.Conn]bool
	broadcast      chan trackEvent
	mu             sync.Mutex
}

type trackEvent struct {
	CompanyID uint                   `json:"-"`
	Payload   map[string]interface{} `json:"payload"`
}

func newTrackHub() *trackHub {
	hub := &trackHub{
		companyClients: make(map[uint]map[*websocket.Conn]bool),
		broadcast:      make(chan trackEvent, 100),
	}
	go hub.run()
	return hub
}

func (h *trackHub) run() {
	for ev := range h.broadcast {
		h.mu.Lock()
		for conn := range h.companyClients[ev.CompanyID] {
			if err := conn.WriteJSON(ev.Payload); err != nil {
				if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
					h.removeLocked(ev.CompanyID, conn)
				} else {
					logrus.WithError(err).WithField("company_id", ev.CompanyID).Warn("Failed to push track event to dashboard client.")
				}
			}
		}
		h.mu.Unlock()
	}
}

func (h *trackHub) register(companyID uint, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.companyClients[companyID]; !ok {
		h.companyClients[companyID] = make(map[*websocket.Conn]bool)
	}
	h.companyClients[companyID][conn] = true
	logrus.WithField("company_id", companyID).Info("Dashboard client registered for live tracking.")
}

func (h *trackHub) unregister(companyID uint, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(companyID, conn)
}

func (h *trackHub) removeLocked(companyID uint, conn *websocket.Conn) {
	if clients, ok := h.companyClients[companyID]; ok {
		delete(clients, conn)
		if len(clients) == 0 {
			delete(h.companyClients, companyID)
		}
	}
}

func (h *trackHub) publish(ev trackEvent) {
	select {
	case h.broadcast <- ev:
	default:
		logrus.Warn("Track broadcast channel full, dropping event.")
	}
}

var liveHub = newTrackHub()

// HandleTrackWebSocket is the live-tracking endpoint. Reps stream position
// fixes; managers of the same company receive them, plus an "arrived" event
// whenever a fix lands within the arrival threshold of an unvisited waypoint
// on the rep's route for today.
func HandleTrackWebSocket(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "missing authentication token"})
		return
	}
	claims, err := middleware.ValidateToken(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": err.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Error("Failed to upgrade WebSocket connection.")
		return
	}
	defer conn.Close()

	switch claims.Role {
	case "rep":
		var employee models.Employee
		if err := config.DB.Where("user_id = ?", claims.UserID).First(&employee).Error; err != nil {
			conn.WriteJSON(gin.H{"error": "no employee profile for this account"})
			return
		}
		handleRepStream(conn, claims.CompanyID, &employee)
	case "manager", "admin":
		liveHub.register(claims.CompanyID, conn)
		defer liveHub.unregister(claims.CompanyID, conn)
		// Drain (and ignore) anything the dashboard sends until it hangs up.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	default:
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "Unauthorized role"))
	}
}

func handleRepStream(conn *websocket.Conn, companyID uint, employee *models.Employee) {
	logrus.WithFields(logrus.Fields{
		"employee_id": employee.ID,
		"company_id":  companyID,
	}).Info("Rep tracking stream established.")

	var lastFix *repFix

	for {
		messageType, p, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithError(err).Errorf("Error reading track message from employee %d", employee.ID)
			}
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var fix repFix
		if err := json.Unmarshal(p, &fix); err != nil {
			conn.WriteJSON(gin.H{"error": "invalid fix format"})
			continue
		}
		if !models.ValidCoordinates(fix.Latitude, fix.Longitude) {
			conn.WriteJSON(gin.H{"error": "coordinates out of range"})
			continue
		}

		// Heading is derived from the previous fix; the first fix has none.
		var bearing float64
		if lastFix != nil {
			bearing = geo.Bearing(lastFix.Latitude, lastFix.Longitude, fix.Latitude, fix.Longitude)
		}

		payload := map[string]interface{}{
			"type":        "position",
			"employee_id": employee.ID,
			"latitude":    fix.Latitude,
			"longitude":   fix.Longitude,
			"accuracy":    fix.Accuracy,
			"speed":       fix.Speed,
			"bearing":     bearing,
			"timestamp":   fix.Timestamp.Format(time.RFC3339Nano),
		}
		liveHub.publish(trackEvent{CompanyID: companyID, Payload: payload})
		lastFix = &fix

		if seq, storeID, ok := nearNextWaypoint(companyID, employee.ID, fix.Latitude, fix.Longitude); ok {
			liveHub.publish(trackEvent{CompanyID: companyID, Payload: map[string]interface{}{
				"type":        "arrived",
				"employee_id": employee.ID,
				"store_id":    storeID,
				"sequence":    seq,
			}})
			conn.WriteJSON(gin.H{"status": "arrived", "sequence": seq, "store_id": storeID})
		}
	}

	logrus.WithField("employee_id", employee.ID).Info("Rep tracking stream closed.")
}

// nearNextWaypoint checks the rep's route for today and reports the first
// unvisited waypoint within the arrival threshold of the fix, if any. The
// visited flag itself is only mutated via the PATCH endpoint.
func nearNextWaypoint(companyID, employeeID uint, lat, lng float64) (sequence int, storeID uint, ok bool) {
	var route models.DailyRoute
	err := config.DB.
		Where("company_id = ? AND employee_id = ? AND date = ?", companyID, employeeID, time.Now().Format("2006-01-02")).
		First(&route).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logrus.WithError(err).Warn("Route lookup failed during arrival check.")
		}
		return 0, 0, false
	}

	for _, wp := range route.Waypoints {
		if wp.Visited {
			continue
		}
		if geo.HaversineMeters(lat, lng, wp.Latitude, wp.Longitude) <= arrivalThresholdMeters {
			return wp.Sequence, wp.StoreID, true
		}
	}
	return 0, 0, false
}
