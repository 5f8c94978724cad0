package ws

import (
	"sync"

	"golang.org/x/net/websocket"

	"github.com/judithshaven/storefront/internal/models"
)

// StatusUpdate is the payload pushed to an order room when an admin changes the
// order status.
type StatusUpdate struct {
	Type           string `json:"type"`
	OrderID        uint   `json:"order_id"`
	Status         string `json:"status"`
	TrackingNumber string `json:"tracking_number,omitempty"`
}

// Hub keeps one room per order id. Rooms are reference-counted: the last
// leaving connection removes the room.
type Hub struct {
	mu    sync.Mutex
	rooms map[uint]map[*websocket.Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[uint]map[*websocket.Conn]struct{})}
}

func (h *Hub) Join(orderID uint, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[orderID]
	if !ok {
		room = make(map[*websocket.Conn]struct{})
		h.rooms[orderID] = room
	}
	room[conn] = struct{}{}
}

func (h *Hub) Leave(orderID uint, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[orderID]
	if !ok {
		return
	}
	delete(room, conn)
	if len(room) == 0 {
		delete(h.rooms, orderID)
	}
}

func (h *Hub) RoomSize(orderID uint) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[orderID])
}

// BroadcastStatus sends an orderStatusUpdate event to every connection in the
// order's room. Send failures drop the connection from the room; the client
// owns reconnection.
func (h *Hub) BroadcastStatus(order *models.Order) {
	if h == nil {
		return
	}

	update := StatusUpdate{
		Type:           "orderStatusUpdate",
		OrderID:        order.ID,
		Status:         order.Status,
		TrackingNumber: order.TrackingNumber,
	}

	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.rooms[order.ID]))
	for conn := range h.rooms[order.ID] {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		if err := websocket.JSON.Send(conn, update); err != nil {
			h.Leave(order.ID, conn)
			conn.Close()
		}
	}
}
