package live

import (
	"context"

	"dialer-platform/internal/dialer"
	"dialer-platform/internal/events"
)

// Bridge pumps engine events from the bus into the hub until ctx is done.
// Run it as a goroutine next to the HTTP server.
func Bridge(ctx context.Context, bus *events.Bus[dialer.Event], hub *Hub) {
	ch, cancel := bus.Subscribe(256)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			hub.Broadcast(ev)
		}
	}
}
