// Package realtime keeps the process-local map of live connections and
// delivers events to every connection a user has open.
package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"asset-tracker-backend/internal/metrics"
)

var (
	// ErrBufferFull is returned when a connection's send buffer has no room.
	ErrBufferFull = errors.New("send buffer full")
	// ErrClosed is returned when sending to a connection that has shut down.
	ErrClosed = errors.New("connection closed")
	// ErrUnknownConnection is returned when joining with an unregistered id.
	ErrUnknownConnection = errors.New("unknown connection")
)

// DeliveryError reports a live push that did not reach one connection.
// It is logged and counted, never returned to the mutation caller.
type DeliveryError struct {
	UserID string
	ConnID string
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver to user %s on connection %s: %v", e.UserID, e.ConnID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Conn is one live connection. Send must not block.
type Conn interface {
	ID() string
	Send(msg []byte) error
}

// Envelope is the wire shape of every server push.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Registry maps user ids to their open connections. A connection belongs to
// at most one user channel at a time.
type Registry struct {
	mu       sync.RWMutex
	conns    map[string]Conn
	joined   map[string]string
	channels map[string]map[string]Conn
	log      *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		conns:    make(map[string]Conn),
		joined:   make(map[string]string),
		channels: make(map[string]map[string]Conn),
		log:      log,
	}
}

// Register tracks a new connection that has not joined a channel yet.
func (r *Registry) Register(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[conn.ID()]; !ok {
		metrics.OpenConnections.Inc()
	}
	r.conns[conn.ID()] = conn
}

// Join places the connection in userID's channel, leaving any channel it
// joined before.
func (r *Registry) Join(connID, userID string) error {
	if userID == "" {
		return errors.New("user id is required to join")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connID]
	if !ok {
		return ErrUnknownConnection
	}
	r.part(connID)

	members := r.channels[userID]
	if members == nil {
		members = make(map[string]Conn)
		r.channels[userID] = members
	}
	members[connID] = conn
	r.joined[connID] = userID

	r.log.Debug("Connection joined user channel", zap.String("conn_id", connID), zap.String("user_id", userID))
	return nil
}

// Leave forgets the connection entirely. It is called when the transport closes.
func (r *Registry) Leave(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.part(connID)
	if _, ok := r.conns[connID]; ok {
		delete(r.conns, connID)
		metrics.OpenConnections.Dec()
	}
}

// part removes connID from its current channel. Callers hold r.mu.
func (r *Registry) part(connID string) {
	userID, ok := r.joined[connID]
	if !ok {
		return
	}
	delete(r.joined, connID)
	if members := r.channels[userID]; members != nil {
		delete(members, connID)
		if len(members) == 0 {
			delete(r.channels, userID)
		}
	}
}

// Connections returns how many connections are in userID's channel.
func (r *Registry) Connections(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels[userID])
}

// Publish enqueues the event on every connection of userID and returns how
// many accepted it. Nothing is acknowledged; failed sends are logged and
// dropped.
func (r *Registry) Publish(userID, event string, payload any) int {
	msg, err := json.Marshal(Envelope{Event: event, Data: payload})
	if err != nil {
		r.log.Error("Failed to encode live event", zap.String("event", event), zap.Error(err))
		return 0
	}

	r.mu.RLock()
	targets := make([]Conn, 0, len(r.channels[userID]))
	for _, conn := range r.channels[userID] {
		targets = append(targets, conn)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, conn := range targets {
		if err := conn.Send(msg); err != nil {
			derr := &DeliveryError{UserID: userID, ConnID: conn.ID(), Err: err}
			r.log.Warn("Live delivery dropped", zap.Error(derr))
			metrics.LiveDeliveries.WithLabelValues("dropped").Inc()
			continue
		}
		delivered++
		metrics.LiveDeliveries.WithLabelValues("sent").Inc()
	}
	return delivered
}
