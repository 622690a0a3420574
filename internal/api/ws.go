package api

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"collarwatch/internal/realtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsConn adapts a gorilla connection to the hub. Writes are serialized with
// a mutex because the hub may fan out from multiple goroutines while the
// read loop sends acks on the same connection.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *wsConn) Close() error { return c.conn.Close() }

var _ realtime.Conn = (*wsConn)(nil)

// controlMessage is what observers send: subscribe or unsubscribe to one dog.
type controlMessage struct {
	Action string `json:"action"`
	DogID  string `json:"dog_id"`
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	clientID := r.PathValue("clientID")
	if clientID == "" {
		writeError(w, http.StatusBadRequest, "client id is required")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("api: websocket upgrade for %s: %v", clientID, err)
		return
	}

	wc := &wsConn{conn: conn}
	s.hub.RegisterConnection(clientID, wc)
	defer s.hub.DeregisterConnection(clientID)

	for {
		var msg controlMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("api: websocket %s: %v", clientID, err)
			}
			return
		}
		switch msg.Action {
		case "subscribe":
			if msg.DogID == "" {
				continue
			}
			s.hub.Subscribe(clientID, msg.DogID)
			_ = wc.WriteJSON(map[string]string{"type": "subscribed", "dog_id": msg.DogID})
		case "unsubscribe":
			if msg.DogID == "" {
				continue
			}
			s.hub.Unsubscribe(clientID, msg.DogID)
			_ = wc.WriteJSON(map[string]string{"type": "unsubscribed", "dog_id": msg.DogID})
		case "ping":
			_ = wc.WriteJSON(map[string]string{"type": "pong"})
		}
	}
}
