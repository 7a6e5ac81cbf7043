package gateway

import (
	"context"
	"log"
)

// PubSubRouter manages Redis PubSub subscriptions and routes messages
// to the broadcaster for fan-out to WebSocket clients.
type PubSubRouter struct {
	hub *Hub
}

// NewPubSubRouter creates a PubSubRouter backed by the given Hub.
func NewPubSubRouter(hub *Hub) *PubSubRouter {
	return &PubSubRouter{hub: hub}
}

// RunExplicit subscribes to the channels built from the hub's configured
// symbols and intervals. Blocks until ctx is cancelled.
func (r *PubSubRouter) RunExplicit(ctx context.Context) {
	channels := r.hub.buildChannels()
	if len(channels) == 0 {
		log.Println("[gateway] WARNING: no explicit channels to subscribe to")
		return
	}

	pubsub := r.hub.Rdb.Subscribe(ctx, channels...)
	defer pubsub.Close()

	log.Printf("[gateway] subscribed to %d PubSub channels", len(channels))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			r.hub.broadcast(msg.Channel, []byte(msg.Payload))
		}
	}
}

// RunPattern subscribes to wildcard patterns so symbols added at runtime
// still reach connected clients. Blocks until ctx is cancelled.
func (r *PubSubRouter) RunPattern(ctx context.Context) {
	pubsub := r.hub.Rdb.PSubscribe(ctx,
		"pub:tick:*", "pub:trade:*", "pub:candle:*", "pub:analysis:*")
	defer pubsub.Close()

	ch := pubsub.Channel()
	seen := make(map[string]bool)
	explicit := make(map[string]bool)
	for _, c := range r.hub.buildChannels() {
		explicit[c] = true
	}

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			// Explicit channels are already routed by RunExplicit
			if explicit[msg.Channel] {
				continue
			}
			if !seen[msg.Channel] {
				seen[msg.Channel] = true
				log.Printf("[gateway] discovered channel %s", msg.Channel)
			}
			r.hub.broadcast(msg.Channel, []byte(msg.Payload))
		}
	}
}
