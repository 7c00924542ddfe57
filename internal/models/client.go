package models

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationType string

const (
	NotificationAlertCleared       NotificationType = "ALERT_CLEARED"
	NotificationMobileAlertToggled NotificationType = "MOBILE_ALERT_TOGGLED"
	NotificationAccountDeactivated NotificationType = "ACCOUNT_DEACTIVATED"
)

// Notification is pushed to live sessions of the owning agent and to every admin.
type Notification struct {
	Type           NotificationType       `json:"type"`
	AgentID        primitive.ObjectID     `json:"agentId"`
	AccountLoginID string                 `json:"accountLoginId,omitempty"`
	Data           map[string]interface{} `json:"data,omitempty"`
	At             time.Time              `json:"at"`
}

// Client is one authenticated websocket session.
type Client struct {
	ID     string
	UserID string
	Role   Role
	Conn   *websocket.Conn
	Send   chan *Notification

	// WriteMu serializes writes on Conn.
	WriteMu   sync.Mutex
	closeOnce sync.Once
}

func NewClient(id, userID string, role Role, conn *websocket.Conn) *Client {
	return &Client{
		ID:     id,
		UserID: userID,
		Role:   role,
		Conn:   conn,
		Send:   make(chan *Notification, 64),
	}
}

// Wants reports whether the session should receive n.
func (c *Client) Wants(n *Notification) bool {
	if c.Role == RoleAdmin {
		return true
	}
	return c.UserID == n.AgentID.Hex()
}

// Close ends delivery to the session. The write pump sees the closed channel
// and closes the connection.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.Send) })
}

type ErrorResponse struct {
	Error string `json:"error"`
}
