package pubsub

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Handler receives relayed events.
type Handler func(ctx context.Context, ev Event)

// Listen subscribes to all relay channels of prefix and calls handle for every
// event until ctx is done.
func Listen(ctx context.Context, client *redis.Client, prefix string, handle Handler) error {
	if prefix == "" {
		prefix = DefaultPrefix
	}

	sub := client.PSubscribe(ctx, prefix+":*")
	defer func() {
		_ = sub.Close()
	}()

	// wait for the subscription to be confirmed
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	ch := sub.Channel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			ev, err := Decode(prefix, msg)
			if err != nil {
				log.Warn().Err(err).Str("channel", msg.Channel).Msg("dropping malformed event")
				continue
			}

			handle(ctx, ev)
		}
	}
}
