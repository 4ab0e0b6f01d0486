package websocket

import "encoding/json"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAutosave  Action = "autosave"
	ActionSubmit    Action = "submit"
	ActionPing      Action = "ping"
	ActionViolation Action = "violation"
	ActionHeartbeat Action = "heartbeat"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// AutosaveRequest is sent by the client to save one skill's response draft.
type AutosaveRequest struct {
	Action   Action          `json:"action"`
	Skill    string          `json:"skill"`
	Response json.RawMessage `json:"response"`
}

// ViolationRequest is sent by the client to report a proctoring violation.
type ViolationRequest struct {
	Action        Action `json:"action"`
	ViolationType string `json:"violation_type"`
	Details       string `json:"details,omitempty"`
}

// HeartbeatRequest keeps the device session alive during the exam.
type HeartbeatRequest struct {
	Action       Action `json:"action"`
	SessionToken string `json:"session_token"`
}

// SubmitRequest is sent by the client to finish the attempt.
type SubmitRequest struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError      Event = "error"
	EventSuccess    Event = "success"
	EventSubmitted  Event = "submitted"
	EventPong       Event = "pong"
	EventViolation  Event = "violation_result"
	EventTerminated Event = "terminated"
)

type AutosaveResponse struct {
	Event  Event  `json:"event"`
	Status string `json:"status"`
}

// ViolationResponse tells the client the classification outcome and whether
// the attempt survived.
type ViolationResponse struct {
	Event         Event  `json:"event"`
	Severity      string `json:"severity"`
	ClientAction  string `json:"action"`
	SecurityScore int    `json:"security_score"`
	Terminated    bool   `json:"terminated"`
}

type SubmittedResponse struct {
	Event  Event  `json:"event"`
	Status string `json:"status"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
