package server

import (
	gojson "github.com/goccy/go-json"

	"github.com/goliatone/go-jsonform/pkg/form"
	"github.com/goliatone/go-jsonform/pkg/layout"
	"github.com/goliatone/go-jsonform/pkg/validation"
)

// ClientMessage is the envelope for all client-to-server WebSocket messages.
type ClientMessage struct {
	Type string            `json:"type"` // "update", "add", "remove", "move", "checkboxes", "reset", "submit", "ping"
	ID   string            `json:"id"`   // client-assigned request ID
	Data gojson.RawMessage `json:"data,omitempty"`
}

// Target names a layout node and the indices that make it concrete.
type Target struct {
	Node        string `json:"node"`
	DataIndex   []int  `json:"dataIndex,omitempty"`
	LayoutIndex []int  `json:"layoutIndex,omitempty"`
}

// UpdateData is the payload of "update" messages.
type UpdateData struct {
	Target
	Value any `json:"value"`
}

// AddData is the payload of "add" messages. Name optionally selects another
// fragment than the add node's own.
type AddData struct {
	Target
	Name string `json:"name,omitempty"`
}

// MoveData is the payload of "move" messages.
type MoveData struct {
	Target
	From int `json:"from"`
	To   int `json:"to"`
}

// CheckboxesData is the payload of "checkboxes" messages.
type CheckboxesData struct {
	Target
	Items []form.CheckboxItem `json:"items"`
}

// ServerMessage is the envelope for all server-to-client WebSocket messages.
type ServerMessage struct {
	Type      string `json:"type"` // "layout", "state", "ack", "submitted", "error", "pong"
	RequestID string `json:"request_id,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// StateData carries the form data after a change.
type StateData struct {
	Data   any                `json:"data"`
	Valid  bool               `json:"valid"`
	Errors []validation.Error `json:"errors,omitempty"`
}

// AckData reports the outcome of a request.
type AckData struct {
	OK bool `json:"ok"`
}

// ErrorData carries an error message.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// FormView is the HTTP representation of a session.
type FormView struct {
	ID     string             `json:"id"`
	Layout layout.Layout      `json:"layout"`
	Data   any                `json:"data"`
	Valid  bool               `json:"valid"`
	Errors []validation.Error `json:"errors,omitempty"`
}

func viewOf(id string, f *form.Form) FormView {
	snap := f.Snapshot()
	return FormView{
		ID:     id,
		Layout: f.Layout(),
		Data:   snap.Data,
		Valid:  snap.Valid,
		Errors: snap.Errors,
	}
}
