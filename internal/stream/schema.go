// Package stream implements the client side of the exam WebSocket stream:
// real-time answer autosave, instant grading on submit, and keepalive
// pings. It is an optional transport — the REST submit path stays
// canonical and the session controller never depends on it.
package stream

// Action identifies a client → server message.
type Action string

const (
	ActionAutosave Action = "autosave"
	ActionSubmit   Action = "submit"
	ActionPing     Action = "ping"
)

// Event identifies a server → client message.
type Event string

const (
	EventError   Event = "error"
	EventSuccess Event = "success"
	EventGraded  Event = "graded"
	EventPong    Event = "pong"
)

// request is the client → server payload. QID and Ans are set only for
// autosave.
type request struct {
	Action Action `json:"action"`
	QID    string `json:"q_id,omitempty"`
	Ans    string `json:"ans,omitempty"`
}

// response is the server → client payload, a union over all events.
type response struct {
	Event  Event   `json:"event"`
	Status string  `json:"status,omitempty"`
	Score  float64 `json:"score,omitempty"`
	Error  string  `json:"error,omitempty"`
}
