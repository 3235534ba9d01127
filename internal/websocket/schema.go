package websocket

import "encoding/json"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAutosave Action = "autosave"
	ActionSubmit   Action = "submit"
	ActionConfirm  Action = "confirm"
	ActionCancel   Action = "cancel"
	ActionState    Action = "state"
	ActionPing     Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// AutosaveRequest is sent by the client to save a single answer.
type AutosaveRequest struct {
	Action     Action          `json:"action"`
	QID        string          `json:"q_id"`
	Answer     json.RawMessage `json:"ans"`
	Interacted bool            `json:"interacted"`
}

// SubmitRequest is sent by the client to finish the attempt. Confirmed skips
// the unanswered-question grace window.
type SubmitRequest struct {
	Action    Action `json:"action"`
	Confirmed bool   `json:"confirmed"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError          Event = "error"
	EventSuccess        Event = "success"
	EventPendingConfirm Event = "pending_confirm"
	EventSubmitted      Event = "submitted"
	EventState          Event = "state"
	EventPong           Event = "pong"
)

type AutosaveResponse struct {
	Event  Event  `json:"event"`
	Status string `json:"status"`
	QID    string `json:"q_id"`
}

// PendingConfirmResponse asks the client to confirm a submit that still has
// unanswered questions.
type PendingConfirmResponse struct {
	Event      Event  `json:"event"`
	Unanswered int    `json:"unanswered"`
	ConfirmBy  string `json:"confirm_by"`
}

type SubmittedResponse struct {
	Event  Event  `json:"event"`
	Status string `json:"status"`
}

// StateResponse carries the resumable attempt view, including the remaining
// countdown the client should display.
type StateResponse struct {
	Event            Event           `json:"event"`
	Status           string          `json:"status"`
	RemainingSeconds *int            `json:"remaining_seconds,omitempty"`
	Answers          json.RawMessage `json:"answers"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
