package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	gojson "github.com/goccy/go-json"

	"github.com/goliatone/go-jsonform/pkg/form"
)

// outboxSize bounds the messages queued for a slow client.
const outboxSize = 64

// serveWS upgrades to WebSocket and runs the message loop of one client.
// Every change of the form, whoever made it, is pushed as a "state" message.
func (h *Handler) serveWS(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.cfg.OriginPatterns,
	})
	if err != nil {
		h.logger.Warn("server: websocket accept", "session", s.ID, "error", err)
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	out := make(chan ServerMessage, outboxSize)
	var unsubscribe func()
	s.Do(func(f *form.Form) {
		h.push(out, h.layoutMessage(f, ""))
		h.push(out, stateMessage(f.Snapshot()))
		unsubscribe = f.Subscribe(func(snap form.Snapshot) {
			h.push(out, stateMessage(snap))
		})
	})
	defer s.Do(func(*form.Form) { unsubscribe() })

	go h.writeLoop(ctx, conn, out)

	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if status := websocket.CloseStatus(err); status != -1 {
				h.logger.Debug("server: connection closed", "session", s.ID, "status", status)
			}
			return
		}
		h.handle(s, msg, out)
	}
}

func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn, out <-chan ServerMessage) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-out:
			if err := wsjson.Write(ctx, conn, msg); err != nil {
				h.logger.Debug("server: write error", "error", err)
				return
			}
		}
	}
}

// push queues msg without blocking; a client that stopped reading loses
// messages instead of stalling the form.
func (h *Handler) push(out chan<- ServerMessage, msg ServerMessage) {
	select {
	case out <- msg:
	default:
		h.logger.Warn("server: outbox full, dropping message", "type", msg.Type)
	}
}

func (h *Handler) handle(s *Session, msg ClientMessage, out chan<- ServerMessage) {
	var (
		ok         bool
		structural bool
		decodeErr  error
		layoutMsg  ServerMessage
	)
	switch msg.Type {
	case "ping":
		h.push(out, ServerMessage{Type: "pong", RequestID: msg.ID})
		return
	case "update":
		var d UpdateData
		if decodeErr = decode(msg, &d); decodeErr == nil {
			s.Do(func(f *form.Form) {
				if ctx, found := target(f, d.Target); found {
					ok = f.UpdateValue(ctx, d.Value)
				}
			})
		}
	case "checkboxes":
		var d CheckboxesData
		if decodeErr = decode(msg, &d); decodeErr == nil {
			s.Do(func(f *form.Form) {
				if ctx, found := target(f, d.Target); found {
					ok = f.UpdateArrayCheckboxList(ctx, d.Items)
				}
			})
		}
	case "add":
		var d AddData
		if decodeErr = decode(msg, &d); decodeErr == nil {
			structural = true
			s.Do(func(f *form.Form) {
				if ctx, found := target(f, d.Target); found {
					ok = f.AddItem(ctx, d.Name)
				}
				layoutMsg = h.layoutMessage(f, msg.ID)
			})
		}
	case "remove":
		var d Target
		if decodeErr = decode(msg, &d); decodeErr == nil {
			structural = true
			s.Do(func(f *form.Form) {
				if ctx, found := target(f, d); found {
					ok = f.RemoveItem(ctx)
				}
				layoutMsg = h.layoutMessage(f, msg.ID)
			})
		}
	case "move":
		var d MoveData
		if decodeErr = decode(msg, &d); decodeErr == nil {
			structural = true
			s.Do(func(f *form.Form) {
				if ctx, found := target(f, d.Target); found {
					ok = f.MoveArrayItem(ctx, d.From, d.To)
				}
				layoutMsg = h.layoutMessage(f, msg.ID)
			})
		}
	case "reset":
		structural = true
		s.Do(func(f *form.Form) {
			ok = f.ResetAllValues() == nil
			layoutMsg = h.layoutMessage(f, msg.ID)
		})
	case "submit":
		var snap form.Snapshot
		var err error
		s.Do(func(f *form.Form) { snap, err = f.Submit() })
		if err != nil {
			h.sendError(out, msg.ID, "submit_failed", err.Error())
			return
		}
		h.push(out, ServerMessage{Type: "submitted", RequestID: msg.ID, Data: stateData(snap)})
		return
	default:
		h.sendError(out, msg.ID, "unknown_type", fmt.Sprintf("unknown message type: %s", msg.Type))
		return
	}
	if decodeErr != nil {
		h.sendError(out, msg.ID, "invalid_data", decodeErr.Error())
		return
	}
	if structural && ok {
		h.push(out, layoutMsg)
	}
	h.push(out, ServerMessage{Type: "ack", RequestID: msg.ID, Data: AckData{OK: ok}})
}

func (h *Handler) sendError(out chan<- ServerMessage, requestID, code, message string) {
	h.push(out, ServerMessage{
		Type:      "error",
		RequestID: requestID,
		Data:      ErrorData{Code: code, Message: message},
	})
}

// layoutMessage encodes the layout while the caller holds the session lock.
func (h *Handler) layoutMessage(f *form.Form, requestID string) ServerMessage {
	raw, err := gojson.Marshal(f.Layout())
	if err != nil {
		h.logger.Error("server: encode layout", "form", f.ID(), "error", err)
		return ServerMessage{Type: "error", RequestID: requestID, Data: ErrorData{Code: "encode", Message: err.Error()}}
	}
	return ServerMessage{Type: "layout", RequestID: requestID, Data: gojson.RawMessage(raw)}
}

func stateMessage(snap form.Snapshot) ServerMessage {
	return ServerMessage{Type: "state", Data: stateData(snap)}
}

func stateData(snap form.Snapshot) StateData {
	return StateData{Data: snap.Data, Valid: snap.Valid, Errors: snap.Errors}
}

func decode(msg ClientMessage, v any) error {
	if len(msg.Data) == 0 {
		return fmt.Errorf("missing data for %q", msg.Type)
	}
	return gojson.Unmarshal(msg.Data, v)
}

// target resolves a message target into a form context.
func target(f *form.Form, t Target) (form.Context, bool) {
	node, ok := findNode(f.Layout(), t.Node)
	if !ok {
		return form.Context{}, false
	}
	return form.Context{
		LayoutNode:  node,
		FormID:      f.ID(),
		DataIndex:   t.DataIndex,
		LayoutIndex: t.LayoutIndex,
	}, true
}
