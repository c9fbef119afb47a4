package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// eventsChannel is the redis pub/sub channel every service instance
// subscribes to. Publishing through redis instead of writing locally keeps
// fan-out correct when participants are connected to different instances,
// and gives at-most-once delivery per subscriber per publish.
const eventsChannel = "messaging:events"

// Channel keys. One logical channel per participant, plus one per shared
// resource such as a support ticket.
func MemberChannel(id int64) string  { return "member_" + strconv.FormatInt(id, 10) }
func ManagerChannel(id int64) string { return "manager_" + strconv.FormatInt(id, 10) }
func TicketChannel(id int64) string  { return "ticket_" + strconv.FormatInt(id, 10) }

// ParticipantChannel maps a caller's type to their own channel key.
func ParticipantChannel(userType string, id int64) string {
	if userType == "manager" {
		return ManagerChannel(id)
	}
	return MemberChannel(id)
}

type envelope struct {
	Channel string          `json:"channel"`
	Payload json.RawMessage `json:"payload"`
}

// Manager maintains channel membership for the connections of this
// instance and bridges publishes across instances via redis.
type Manager struct {
	mu       sync.RWMutex
	channels map[string]map[*Client]struct{}

	rdb    *redis.Client
	logger *zap.Logger
}

func NewManager(rdb *redis.Client, logger *zap.Logger) *Manager {
	return &Manager{
		channels: make(map[string]map[*Client]struct{}),
		rdb:      rdb,
		logger:   logger,
	}
}

// Add registers a connection under every channel it subscribes to.
func (m *Manager) Add(c *Client) {
	m.mu.Lock()
	for _, key := range c.Channels {
		if _, ok := m.channels[key]; !ok {
			m.channels[key] = make(map[*Client]struct{})
		}
		m.channels[key][c] = struct{}{}
	}
	m.mu.Unlock()

	m.logger.Info("ws connected",
		zap.String("client_id", c.ID),
		zap.Strings("channels", c.Channels))
}

// Remove drops a connection from all of its channels. Safe to call more
// than once.
func (m *Manager) Remove(c *Client) {
	m.mu.Lock()
	for _, key := range c.Channels {
		if conns, ok := m.channels[key]; ok {
			delete(conns, c)
			if len(conns) == 0 {
				delete(m.channels, key)
			}
		}
	}
	m.mu.Unlock()

	m.logger.Info("ws disconnected", zap.String("client_id", c.ID))
}

// Publish pushes an event to every subscriber of the channel, across all
// instances. Delivery happens via the redis subscription loop, including
// for subscribers on this instance.
func (m *Manager) Publish(ctx context.Context, channel string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("publish: marshal event: %w", err)
	}
	env, err := json.Marshal(envelope{Channel: channel, Payload: payload})
	if err != nil {
		return fmt.Errorf("publish: marshal envelope: %w", err)
	}
	if err := m.rdb.Publish(ctx, eventsChannel, env).Err(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Run consumes the redis subscription and fans events out to local
// connections. Blocks until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	pubsub := m.rdb.Subscribe(ctx, eventsChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				m.logger.Warn("ws: dropping malformed event", zap.Error(err))
				continue
			}
			m.deliver(env.Channel, env.Payload)
		}
	}
}

// deliver hands the payload to every local connection on the channel.
// A connection with a full send buffer is dropped rather than letting one
// slow reader stall the rest.
func (m *Manager) deliver(channel string, payload []byte) {
	var dropped []*Client

	m.mu.RLock()
	for c := range m.channels[channel] {
		select {
		case c.Send <- payload:
		default:
			dropped = append(dropped, c)
		}
	}
	m.mu.RUnlock()

	// Close takes the write lock via Remove, so it runs after the
	// read lock is released.
	for _, c := range dropped {
		m.logger.Warn("ws: send buffer full, dropping client",
			zap.String("client_id", c.ID))
		c.Close()
	}
}
