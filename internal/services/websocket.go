package services

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sendeeapp/sendee-backend/internal/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// Client represents a WebSocket client. Users and riders live in separate
// tables, so a client is identified by (AccountType, ID).
type Client struct {
	ID          uint
	AccountType string // "user" or "rider"
	Conn        *websocket.Conn
	Send        chan []byte
	Hub         *Hub
}

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			log.Printf("%s %d connected", client.AccountType, client.ID)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mutex.Unlock()
			log.Printf("%s %d disconnected", client.AccountType, client.ID)
		}
	}
}

// BroadcastTo sends a message to a specific user or rider. Clients whose
// send buffer is full are handed to the unregister path; the map and the
// channel close stay owned by Run, so concurrent broadcasts never mutate
// shared state under the read lock.
func (h *Hub) BroadcastTo(accountType string, id uint, message []byte) {
	h.mutex.RLock()
	var stalled []*Client
	for client := range h.clients {
		if client.ID == id && client.AccountType == accountType {
			select {
			case client.Send <- message:
			default:
				stalled = append(stalled, client)
			}
		}
	}
	h.mutex.RUnlock()

	for _, client := range stalled {
		h.unregister <- client
	}
}

// BroadcastToRiders sends a message to every connected rider
func (h *Hub) BroadcastToRiders(message []byte) {
	h.mutex.RLock()
	var stalled []*Client
	for client := range h.clients {
		if client.AccountType == "rider" {
			select {
			case client.Send <- message:
			default:
				stalled = append(stalled, client)
			}
		}
	}
	h.mutex.RUnlock()

	for _, client := range stalled {
		h.unregister <- client
	}
}

// GetConnectedClients returns the number of connected clients
func (h *Hub) GetConnectedClients() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// WebSocket message types
type WebSocketMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// ParcelClaimed notifies a parcel's sender and receiver that a rider took
// the job.
type ParcelClaimed struct {
	ParcelID   uint `json:"parcelId"`
	DeliveryID uint `json:"deliveryId"`
	RiderID    uint `json:"riderId"`
}

// DeliveryStatusChanged notifies interested parties of a status transition.
type DeliveryStatusChanged struct {
	DeliveryID   uint                  `json:"deliveryId"`
	ParcelID     uint                  `json:"parcelId"`
	Status       models.DeliveryStatus `json:"status"`
	StatusLabel  string                `json:"statusLabel"`
	ParcelStatus models.ParcelStatus   `json:"parcelStatus"`
}

// SendParcelClaimed notifies the sender and receiver of a claim.
func (h *Hub) SendParcelClaimed(senderID, receiverID uint, claimed ParcelClaimed) {
	message := WebSocketMessage{
		Type: "parcel_claimed",
		Data: claimed,
	}

	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling parcel claimed: %v", err)
		return
	}

	h.BroadcastTo("user", senderID, data)
	if receiverID != senderID {
		h.BroadcastTo("user", receiverID, data)
	}
}

// SendDeliveryStatusChanged notifies sender, receiver and rider of a
// transition.
func (h *Hub) SendDeliveryStatusChanged(senderID, receiverID uint, riderID *uint, changed DeliveryStatusChanged) {
	message := WebSocketMessage{
		Type: "delivery_status_changed",
		Data: changed,
	}

	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling delivery status changed: %v", err)
		return
	}

	h.BroadcastTo("user", senderID, data)
	if receiverID != senderID {
		h.BroadcastTo("user", receiverID, data)
	}
	if riderID != nil {
		h.BroadcastTo("rider", *riderID, data)
	}
}

// HandleWebSocket handles WebSocket connections
func HandleWebSocket(hub *Hub, w http.ResponseWriter, r *http.Request, id uint, accountType string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		ID:          id,
		AccountType: accountType,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Hub:         hub,
	}

	client.Hub.register <- client

	// Start goroutines for reading and writing
	go client.writePump()
	go client.readPump()
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
		// Inbound messages are ignored; the socket is notification-only.
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	defer c.Conn.Close()

	for message := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Printf("WebSocket write error: %v", err)
			return
		}
	}
	c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}
