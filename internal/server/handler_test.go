package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	gojson "github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
)

const createPayload = `{
  "schema": {
    "type": "object",
    "properties": {
      "name": {"type": "string"},
      "tags": {"type": "array", "items": {"type": "string"}}
    },
    "required": ["name"]
  },
  "data": {"tags": ["a"]}
}`

type nodeView struct {
	ID    string     `json:"_id"`
	Type  string     `json:"type"`
	Items []nodeView `json:"items"`
}

type viewResponse struct {
	ID     string     `json:"id"`
	Layout []nodeView `json:"layout"`
	Data   any        `json:"data"`
	Valid  bool       `json:"valid"`
}

func newTestServer(t *testing.T) (*httptest.Server, *Manager) {
	t.Helper()
	sessions := NewManager(time.Hour, time.Hour)
	srv := httptest.NewServer(NewHandler(sessions, DefaultConfig(), nil).Routes())
	t.Cleanup(srv.Close)
	return srv, sessions
}

func createForm(t *testing.T, srv *httptest.Server, payload string) viewResponse {
	t.Helper()
	resp, err := http.Post(srv.URL+"/forms", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var view viewResponse
	if err := gojson.NewDecoder(resp.Body).Decode(&view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return view
}

func TestForms_CreateGetDelete(t *testing.T) {
	srv, sessions := newTestServer(t)
	view := createForm(t, srv, createPayload)
	if view.ID == "" || view.Valid {
		t.Fatalf("unexpected view: %+v", view)
	}
	if diff := cmp.Diff(map[string]any{"tags": []any{"a"}}, view.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}

	resp, err := http.Get(srv.URL + "/forms/" + view.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/forms/"+view.ID, nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent || sessions.Len() != 0 {
		t.Fatalf("delete status = %d, sessions = %d", resp.StatusCode, sessions.Len())
	}
}

func TestForms_CreateErrors(t *testing.T) {
	srv, _ := newTestServer(t)
	cases := []struct {
		name    string
		payload string
		status  int
	}{
		{name: "invalid json", payload: `{"schema":`, status: http.StatusBadRequest},
		{name: "no schema", payload: `{"data":{}}`, status: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/forms", "application/json", bytes.NewBufferString(tc.payload))
			if err != nil {
				t.Fatalf("post: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tc.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.status)
			}
		})
	}

	resp, err := http.Get(srv.URL + "/forms/missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing status = %d", resp.StatusCode)
	}
}

func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string) ServerMessage {
	t.Helper()
	for {
		var msg ServerMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			t.Fatalf("read %s: %v", typ, err)
		}
		if msg.Type == typ {
			return msg
		}
	}
}

func TestWebSocket_UpdateAndAdd(t *testing.T) {
	srv, _ := newTestServer(t)
	view := createForm(t, srv, createPayload)
	nameID := view.Layout[0].ID
	tags := view.Layout[1]
	addID := tags.Items[len(tags.Items)-1].ID

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/forms/"+view.ID+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	readUntil(t, ctx, conn, "layout")
	readUntil(t, ctx, conn, "state")

	send := func(typ, id string, data any) {
		raw, err := gojson.Marshal(data)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if err := wsjson.Write(ctx, conn, ClientMessage{Type: typ, ID: id, Data: raw}); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	send("update", "1", UpdateData{Target: Target{Node: nameID}, Value: "Ada"})
	state := readUntil(t, ctx, conn, "state")
	data := state.Data.(map[string]any)
	if diff := cmp.Diff(map[string]any{"name": "Ada", "tags": []any{"a"}}, data["data"]); diff != "" {
		t.Fatalf("state mismatch (-want +got):\n%s", diff)
	}
	if data["valid"] != true {
		t.Fatalf("expected valid state: %+v", data)
	}
	ack := readUntil(t, ctx, conn, "ack")
	if ack.RequestID != "1" || ack.Data.(map[string]any)["ok"] != true {
		t.Fatalf("ack = %+v", ack)
	}

	send("add", "2", AddData{Target: Target{Node: addID, DataIndex: []int{1}, LayoutIndex: []int{1}}})
	readUntil(t, ctx, conn, "layout")
	ack = readUntil(t, ctx, conn, "ack")
	if ack.RequestID != "2" || ack.Data.(map[string]any)["ok"] != true {
		t.Fatalf("add ack = %+v", ack)
	}

	send("bogus", "3", nil)
	if msg := readUntil(t, ctx, conn, "error"); msg.RequestID != "3" {
		t.Fatalf("error = %+v", msg)
	}
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("JSONFORM_SESSION_IDLE", "5m")
	t.Setenv("JSONFORM_ORIGINS", "example.com, *.example.org")
	t.Setenv("JSONFORM_DEBUG", "true")
	cfg := LoadConfig("testdata/missing.env")
	if cfg.Addr != ":9000" || cfg.IdleTimeout != 5*time.Minute || !cfg.Debug {
		t.Fatalf("cfg = %+v", cfg)
	}
	if diff := cmp.Diff([]string{"example.com", "*.example.org"}, cfg.OriginPatterns); diff != "" {
		t.Fatalf("origins (-want +got):\n%s", diff)
	}
	if cfg.MaxAge != DefaultConfig().MaxAge {
		t.Fatalf("max age = %v", cfg.MaxAge)
	}
}
