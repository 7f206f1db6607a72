package handlers

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/olahol/melody"

	"github.com/managenow/api/middleware"
	"github.com/managenow/api/utils"
)

// WSHandler pushes ledger change events to the signed-in user's open
// websocket connections. It satisfies services.Notifier.
type WSHandler struct {
	M *melody.Melody
}

type wsEvent struct {
	Type    string    `json:"type"`
	Payload any       `json:"payload,omitempty"`
	SentAt  time.Time `json:"sent_at"`
}

func NewWSHandler() *WSHandler {
	m := melody.New()

	m.Config.MaxMessageSize = 1024 * 1024

	// Keep-Alive behind proxies that drop idle connections
	m.Config.PingPeriod = 30 * time.Second
	m.Config.PongWait = 60 * time.Second

	m.HandleConnect(func(s *melody.Session) {
		userID, _ := s.Get("user_id")
		utils.LogWebSocket("connected", userID.(string))
	})

	m.HandleDisconnect(func(s *melody.Session) {
		userID, _ := s.Get("user_id")
		utils.LogWebSocket("disconnected", userID.(string))
	})

	m.HandleError(func(s *melody.Session, err error) {
		utils.SafeWarn("❌ WebSocket error: %v", err)
	})

	return &WSHandler{M: m}
}

// HandleWS upgrades an authenticated request.
func (h *WSHandler) HandleWS(c *gin.Context) {
	keys := map[string]any{"user_id": middleware.GetUserID(c)}
	if err := h.M.HandleRequestWithKeys(c.Writer, c.Request, keys); err != nil {
		utils.SafeWarn("❌ Failed to upgrade websocket: %v", err)
	}
}

// Notify sends the event to every session of userID.
func (h *WSHandler) Notify(userID string, event string, payload any) {
	msg, err := json.Marshal(wsEvent{Type: event, Payload: payload, SentAt: time.Now().UTC()})
	if err != nil {
		utils.SafeWarn("⚠️ Cannot encode %s event: %v", event, err)
		return
	}

	err = h.M.BroadcastFilter(msg, func(q *melody.Session) bool {
		id, exists := q.Get("user_id")
		return exists && id == userID
	})
	if err != nil && err != melody.ErrClosed {
		utils.SafeWarn("⚠️ Error broadcasting %s: %v", event, err)
	}
}

func (h *WSHandler) Close() error {
	return h.M.Close()
}
