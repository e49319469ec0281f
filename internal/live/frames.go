package live

// clientFrame is what a live client may send over the socket.
type clientFrame struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
}

const (
	frameSubscribe   = "SUBSCRIBE"
	frameUnsubscribe = "UNSUBSCRIBE"
	framePong        = "PONG"
)

// pingFrame is the liveness probe pushed to clients between events.
type pingFrame struct {
	Type string `json:"type"`
}

var ping = pingFrame{Type: "PING"}
