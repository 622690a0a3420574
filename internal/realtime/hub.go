// Package realtime tracks live observer connections and fans scored
// readings and intervention alerts out to them.
package realtime

import (
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"collarwatch/internal/model"
)

var (
	deliveries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collarwatch_realtime_deliveries_total",
		Help: "Messages delivered to live observers",
	})
	deliveryFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collarwatch_realtime_delivery_failures_total",
		Help: "Deliveries that failed and caused the observer to be dropped",
	})
	connectedObservers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "collarwatch_realtime_observers",
		Help: "Currently connected observers",
	})
)

// Conn is one observer's live connection. The production implementation
// wraps a websocket; tests use in-memory fakes.
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

// Message is the envelope pushed to observers.
type Message struct {
	Type      string    `json:"type"`
	DogID     string    `json:"dog_id"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	TypeSensorUpdate      = "sensor_update"
	TypeInterventionAlert = "intervention_alert"
	TypeHealthAlert       = "health_alert"
)

// Hub is the subscription registry plus fan-out. Both directions of the
// registry (dog -> observers, observer -> dogs) are kept consistent under
// one lock; fan-out iterates over a snapshot so that a disconnect triggered
// mid-broadcast cannot corrupt iteration.
type Hub struct {
	mu          sync.RWMutex
	conns       map[string]Conn                // observer id -> connection
	subscribers map[string]map[string]struct{} // dog id -> observer ids
	watched     map[string]map[string]struct{} // observer id -> dog ids
}

func NewHub() *Hub {
	return &Hub{
		conns:       make(map[string]Conn),
		subscribers: make(map[string]map[string]struct{}),
		watched:     make(map[string]map[string]struct{}),
	}
}

// RegisterConnection attaches an observer's live connection. A second
// registration for the same observer replaces (and closes) the old one.
func (h *Hub) RegisterConnection(observerID string, conn Conn) {
	h.mu.Lock()
	old := h.conns[observerID]
	h.conns[observerID] = conn
	n := len(h.conns)
	h.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	connectedObservers.Set(float64(n))
	log.Printf("realtime: observer %s connected (%d total)", observerID, n)
}

// DeregisterConnection removes the observer from the connection table and
// from every dog's subscriber set.
func (h *Hub) DeregisterConnection(observerID string) {
	h.mu.Lock()
	conn := h.conns[observerID]
	delete(h.conns, observerID)
	for dogID := range h.watched[observerID] {
		delete(h.subscribers[dogID], observerID)
		if len(h.subscribers[dogID]) == 0 {
			delete(h.subscribers, dogID)
		}
	}
	delete(h.watched, observerID)
	n := len(h.conns)
	h.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	connectedObservers.Set(float64(n))
	log.Printf("realtime: observer %s disconnected (%d total)", observerID, n)
}

// Subscribe registers the observer's interest in one dog.
func (h *Hub) Subscribe(observerID, dogID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[observerID]; !ok {
		return
	}
	if h.subscribers[dogID] == nil {
		h.subscribers[dogID] = make(map[string]struct{})
	}
	h.subscribers[dogID][observerID] = struct{}{}
	if h.watched[observerID] == nil {
		h.watched[observerID] = make(map[string]struct{})
	}
	h.watched[observerID][dogID] = struct{}{}
}

// Unsubscribe removes the observer's interest in one dog.
func (h *Hub) Unsubscribe(observerID, dogID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subscribers[dogID], observerID)
	if len(h.subscribers[dogID]) == 0 {
		delete(h.subscribers, dogID)
	}
	delete(h.watched[observerID], dogID)
}

// ObserverCount returns the number of live connections.
func (h *Hub) ObserverCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// SubscriberCount returns the number of observers watching one dog.
func (h *Hub) SubscriberCount(dogID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[dogID])
}

// SendSensorUpdate pushes a scored reading to the dog's subscribers.
func (h *Hub) SendSensorUpdate(dogID string, data any) {
	h.deliver(h.snapshotSubscribers(dogID), Message{
		Type: TypeSensorUpdate, DogID: dogID, Data: data, Timestamp: time.Now().UTC(),
	})
}

// SendInterventionAlert pushes an intervention to the dog's subscribers.
// HIGH and CRITICAL alerts additionally go to every connected observer so
// escalations are never missed by an operator watching other dogs.
func (h *Hub) SendInterventionAlert(dogID string, tier model.InterventionTier, data any) {
	msg := Message{Type: TypeInterventionAlert, DogID: dogID, Data: data, Timestamp: time.Now().UTC()}
	if tier == model.TierHigh || tier == model.TierCritical {
		h.deliver(h.snapshotAll(), msg)
		return
	}
	h.deliver(h.snapshotSubscribers(dogID), msg)
}

// SendHealthAlert pushes a health warning to the dog's subscribers.
func (h *Hub) SendHealthAlert(dogID string, data any) {
	h.deliver(h.snapshotSubscribers(dogID), Message{
		Type: TypeHealthAlert, DogID: dogID, Data: data, Timestamp: time.Now().UTC(),
	})
}

type target struct {
	observerID string
	conn       Conn
}

func (h *Hub) snapshotSubscribers(dogID string) []target {
	h.mu.RLock()
	defer h.mu.RUnlock()
	targets := make([]target, 0, len(h.subscribers[dogID]))
	for id := range h.subscribers[dogID] {
		if conn, ok := h.conns[id]; ok {
			targets = append(targets, target{observerID: id, conn: conn})
		}
	}
	return targets
}

func (h *Hub) snapshotAll() []target {
	h.mu.RLock()
	defer h.mu.RUnlock()
	targets := make([]target, 0, len(h.conns))
	for id, conn := range h.conns {
		targets = append(targets, target{observerID: id, conn: conn})
	}
	return targets
}

// deliver writes the message to every target. A failed observer is
// deregistered and never aborts delivery to the rest.
func (h *Hub) deliver(targets []target, msg Message) {
	var failed []string
	for _, t := range targets {
		if err := t.conn.WriteJSON(msg); err != nil {
			log.Printf("realtime: delivery to observer %s failed: %v", t.observerID, err)
			failed = append(failed, t.observerID)
			deliveryFailures.Inc()
			continue
		}
		deliveries.Inc()
	}
	for _, id := range failed {
		h.DeregisterConnection(id)
	}
}
