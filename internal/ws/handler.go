package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mehrbod2002/equitywatch/internal/auth"
	"github.com/mehrbod2002/equitywatch/internal/middleware"
	"github.com/mehrbod2002/equitywatch/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second

	pongWait = 60 * time.Second

	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type socketMessage struct {
	Action string `json:"action"`
}

type WebSocketHandler struct {
	hub    *Hub
	issuer *auth.Issuer
}

func NewWebSocketHandler(hub *Hub, issuer *auth.Issuer) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, issuer: issuer}
}

// HandleConnection authenticates before upgrading. Browsers cannot set headers
// on a websocket handshake, so the token may also come as ?token=.
// @Summary Live notifications
// @Description Upgrades to a websocket that streams notifications for the caller's accounts
// @Tags Notifications
// @Param token query string false "Bearer token when the Authorization header cannot be set"
// @Success 101
// @Failure 400 {object} map[string]string "Token Not Provided"
// @Failure 401 {object} map[string]string "Invalid token"
// @Router /ws [get]
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if parts := strings.SplitN(header, " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			token = strings.TrimSpace(parts[1])
		}
	}
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": "RS_ERROR", "message": "Token Not Provided"})
		return
	}
	identity, err := middleware.IdentityFromToken(h.issuer, token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "RS_ERROR", "message": "Invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := h.hub.RegisterClient(conn, identity)

	go h.readPump(client)
	go h.writePump(client)
}

func (h *WebSocketHandler) readPump(client *models.Client) {
	defer func() {
		h.hub.UnregisterClient(client)
	}()

	client.Conn.SetReadLimit(maxMessageSize)
	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("websocket read failed", "client_id", client.ID, "error", err)
			}
			break
		}

		// Sessions are receive-only. Anything other than a ping is rejected.
		var msg socketMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			h.reply(client, models.ErrorResponse{Error: "Invalid message format"})
			continue
		}
		if msg.Action != "ping" {
			h.reply(client, models.ErrorResponse{Error: "Unknown action"})
			continue
		}
		h.reply(client, gin.H{"action": "pong"})
	}
}

// reply writes from the read goroutine, so it takes WriteMu like the write pump.
func (h *WebSocketHandler) reply(client *models.Client, v interface{}) {
	client.WriteMu.Lock()
	defer client.WriteMu.Unlock()
	client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	client.Conn.WriteJSON(v)
}

func (h *WebSocketHandler) writePump(client *models.Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case n, ok := <-client.Send:
			client.WriteMu.Lock()
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				client.WriteMu.Unlock()
				return
			}
			err := client.Conn.WriteJSON(n)
			client.WriteMu.Unlock()
			if err != nil {
				return
			}

		case <-ticker.C:
			client.WriteMu.Lock()
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := client.Conn.WriteMessage(websocket.PingMessage, nil)
			client.WriteMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
