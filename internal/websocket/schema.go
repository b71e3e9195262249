package websocket

import (
	"encoding/json"

	"github.com/stemsi/qbank-console/internal/workflow"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing     Action = "ping"
	ActionSnapshot Action = "snapshot"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError    Event = "error"
	EventPong     Event = "pong"
	EventSnapshot Event = "snapshot"
	EventWorkflow Event = "workflow"
)

// SnapshotResponse carries the full session state, sent on connect and on
// request.
type SnapshotResponse struct {
	Event   Event             `json:"event"`
	Session *workflow.Session `json:"session"`
}

// WorkflowResponse forwards one workflow event. Data is the published JSON,
// passed through without decoding.
type WorkflowResponse struct {
	Event Event           `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
