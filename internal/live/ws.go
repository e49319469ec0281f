package live

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"golang.org/x/net/websocket"
)

const (
	pingInterval   = 15 * time.Second
	maxMissedPings = 2
)

// Handler returns the websocket endpoint for live session updates.
//
// Protocol: the client sends SUBSCRIBE frames naming session ids and answers
// PING probes with PONG. The server pushes engine events for subscribed
// sessions. A client that misses consecutive probes or overflows its send
// buffer is disconnected.
func Handler(hub *Hub, log *slog.Logger) websocket.Handler {
	return func(ws *websocket.Conn) {
		defer ws.Close()

		sub := newSubscriber()
		hub.attach(sub)
		defer hub.detach(sub)

		pongs := make(chan struct{}, 1)
		go readLoop(ws, hub, sub, pongs, log)

		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()

		missed := 0
		for {
			select {
			case frame, ok := <-sub.out:
				if !ok {
					return
				}
				if err := websocket.JSON.Send(ws, frame); err != nil {
					return
				}
			case <-pongs:
				missed = 0
			case <-ticker.C:
				missed++
				if missed > maxMissedPings {
					log.Info("live client missed pings, disconnecting")
					return
				}
				if err := websocket.JSON.Send(ws, ping); err != nil {
					return
				}
			}
		}
	}
}

func readLoop(ws *websocket.Conn, hub *Hub, sub *subscriber, pongs chan<- struct{}, log *slog.Logger) {
	defer sub.kill()

	for {
		var frame clientFrame
		if err := websocket.JSON.Receive(ws, &frame); err != nil {
			if !errors.Is(err, io.EOF) {
				log.Debug("live read failed", "err", err)
			}
			return
		}

		switch frame.Type {
		case frameSubscribe:
			if frame.SessionID != "" {
				hub.subscribe(sub, frame.SessionID)
			}
		case frameUnsubscribe:
			if frame.SessionID != "" {
				hub.unsubscribe(sub, frame.SessionID)
			}
		case framePong:
			select {
			case pongs <- struct{}{}:
			default:
			}
		}
	}
}
