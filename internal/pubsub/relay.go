package pubsub

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gobb-forum/gobb/internal/logger"
	"github.com/gobb-forum/gobb/internal/plugins"
)

// DefaultPrefix is used when no channel prefix is configured.
const DefaultPrefix = "gobb"

// Publisher is the part of the Redis client the relay needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Event is a relayed action hook.
type Event struct {
	Hook    string          `json:"hook"`
	Payload json.RawMessage `json:"payload"`
}

// Relay publishes fired action hooks on <prefix>:<hook>.
type Relay struct {
	client Publisher
	prefix string
	log    zerolog.Logger
}

// NewRelay creates a Relay.
func NewRelay(client Publisher, prefix string) *Relay {
	if prefix == "" {
		prefix = DefaultPrefix
	}

	return &Relay{client: client, prefix: prefix, log: logger.Component("pubsub")}
}

// Attach makes the relay observe every action of hooks.
func (r *Relay) Attach(hooks *plugins.Registry) {
	hooks.Observe(r.Publish)
}

// Channel returns the channel a hook is published on.
func (r *Relay) Channel(hook string) string {
	return r.prefix + ":" + hook
}

// Publish encodes payload and publishes it. Failures are logged only.
func (r *Relay) Publish(ctx context.Context, hook string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		r.log.Error().Err(err).Str("hook", hook).Msg("can't encode hook payload")
		return
	}

	msg, err := json.Marshal(Event{Hook: hook, Payload: raw})
	if err != nil {
		r.log.Error().Err(err).Str("hook", hook).Msg("can't encode event")
		return
	}

	if err := r.client.Publish(ctx, r.Channel(hook), msg).Err(); err != nil {
		r.log.Error().Err(err).Str("hook", hook).Msg("publish failed")
	}
}

// Decode parses a message received on a relay channel.
func Decode(prefix string, msg *redis.Message) (Event, error) {
	var ev Event
	if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
		return Event{}, err
	}

	if ev.Hook == "" {
		ev.Hook = strings.TrimPrefix(msg.Channel, prefix+":")
	}

	return ev, nil
}
