package stream

import (
	"io"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"antcolony/internal/geom"
	"antcolony/internal/sim"
	"antcolony/internal/world"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// Hello is sent once to every client on connect.
type Hello struct {
	Type     string             `json:"type"`
	Width    int                `json:"w"`
	Height   int                `json:"h"`
	Origin   geom.Vec2          `json:"origin"`
	SafeZone world.Rect         `json:"safe_zone"`
	Walls    []world.Rect       `json:"walls"`
	Hazards  []world.Rect       `json:"hazards"`
	Food     []world.FoodRegion `json:"food"`
}

// HelloFor snapshots the layout. The simulation keeps consuming food after
// the hello is built, so the region slices are copied.
func HelloFor(layout *world.Layout) Hello {
	return Hello{
		Type:     "config",
		Width:    layout.Grid.Width(),
		Height:   layout.Grid.Height(),
		Origin:   layout.Origin,
		SafeZone: layout.SafeZone,
		Walls:    append([]world.Rect(nil), layout.Walls...),
		Hazards:  append([]world.Rect(nil), layout.Hazards...),
		Food:     append([]world.FoodRegion(nil), layout.Food...),
	}
}

type FrameMessage struct {
	Type  string    `json:"type"`
	Frame sim.Frame `json:"frame"`
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// Hub fans simulation frames out to websocket clients. Clients that fail a
// write are dropped.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	hello   any
	logger  *log.Logger
}

func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Hub{clients: make(map[*client]struct{}), logger: logger}
}

// SetHello sets the message sent to clients when they connect.
func (h *Hub) SetHello(v any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hello = v
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade: %v", err)
		return
	}
	c := &client{conn: conn}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	hello := h.hello
	h.mu.Unlock()

	if hello != nil {
		if err := c.send(hello); err != nil {
			h.drop(c)
			return
		}
	}

	// Clients only listen; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.drop(c)
}

func (h *Hub) Broadcast(v any) {
	h.mu.Lock()
	list := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		list = append(list, c)
	}
	h.mu.Unlock()

	for _, c := range list {
		if err := c.send(v); err != nil {
			h.logger.Printf("client send error: %v", err)
			h.drop(c)
		}
	}
}

// Observer broadcasts every tick frame.
func (h *Hub) Observer() sim.TickObserver {
	return func(frame sim.Frame) {
		h.Broadcast(FrameMessage{Type: "frame", Frame: frame})
	}
}

func (h *Hub) Close() {
	h.mu.Lock()
	list := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		list = append(list, c)
	}
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()
	for _, c := range list {
		_ = c.conn.Close()
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		_ = c.conn.Close()
	}
}
