// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"verb/internal/params"
)

type testUpdate struct {
	Params []params.Param `json:"params"`
	Error  string         `json:"error"`
}

func newTestServer(t *testing.T) (*Server, *params.Store, string) {
	t.Helper()
	store := params.NewStore()
	s := NewServer(store, "127.0.0.1:0")
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.Close()
		ts.Close()
	})
	return s, store, ts.URL
}

func dial(t *testing.T, baseURL string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(baseURL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readUpdate(t *testing.T, conn *websocket.Conn) testUpdate {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var u testUpdate
	if err := conn.ReadJSON(&u); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	return u
}

func TestServerSendsSnapshotOnConnect(t *testing.T) {
	_, store, url := newTestServer(t)
	store.Set(params.PostGain, 0.25)

	u := readUpdate(t, dial(t, url))
	if len(u.Params) != int(params.NumParams) {
		t.Fatalf("got %d params, want %d", len(u.Params), params.NumParams)
	}
	if u.Params[params.PostGain].Value != 0.25 || u.Params[params.PostGain].Name != store.Name(params.PostGain) {
		t.Errorf("post gain row = %+v", u.Params[params.PostGain])
	}
}

func TestServerAppliesAndBroadcasts(t *testing.T) {
	_, store, url := newTestServer(t)
	a := dial(t, url)
	b := dial(t, url)
	readUpdate(t, a)
	readUpdate(t, b)

	if err := a.WriteJSON(map[string]any{"index": params.PreGain, "value": 0.75}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	for name, conn := range map[string]*websocket.Conn{"sender": a, "listener": b} {
		u := readUpdate(t, conn)
		if u.Error != "" {
			t.Fatalf("%s got error %q", name, u.Error)
		}
		if got := u.Params[params.PreGain].Value; got != 0.75 {
			t.Errorf("%s saw pre gain %v, want 0.75", name, got)
		}
	}
	if store.PreGain() != 0.75 {
		t.Errorf("store pre gain = %v, want 0.75", store.PreGain())
	}
}

func TestServerRejectsBadMessages(t *testing.T) {
	_, store, url := newTestServer(t)
	conn := dial(t, url)
	readUpdate(t, conn)

	tests := []struct {
		name string
		msg  string
		want string
	}{
		{"malformed", `{"index":`, "invalid message"},
		{"missing index", `{"value":0.5}`, ErrBadIndex.Error()},
		{"negative index", `{"index":-1,"value":0.5}`, ErrBadIndex.Error()},
		{"index out of range", `{"index":2,"value":0.5}`, ErrBadIndex.Error()},
		{"missing value", `{"index":0}`, ErrBadValue.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(tt.msg)); err != nil {
				t.Fatalf("WriteMessage: %v", err)
			}
			u := readUpdate(t, conn)
			if !strings.Contains(u.Error, tt.want) {
				t.Errorf("error = %q, want %q", u.Error, tt.want)
			}
		})
	}
	if store.PreGain() != params.DefaultPreGain {
		t.Errorf("rejected messages changed the store: %v", store.PreGain())
	}
}

func TestServerApplyRejectsNonFinite(t *testing.T) {
	s := NewServer(params.NewStore(), "")
	defer s.Close()
	// JSON cannot carry NaN, but a float32 overflow decodes to an error too.
	if err := s.apply([]byte(`{"index":0,"value":1e300}`)); err == nil {
		t.Error("expected error for value overflowing float32")
	}
	if err := s.apply([]byte(`{"index":1,"value":1.5}`)); err != nil {
		t.Errorf("valid message: %v", err)
	}
}

func TestServerParamsEndpoint(t *testing.T) {
	_, store, url := newTestServer(t)
	store.Set(params.PreGain, 0)

	resp, err := http.Get(url + "/params")
	if err != nil {
		t.Fatalf("GET /params: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var table []params.Param
	if err := json.NewDecoder(resp.Body).Decode(&table); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(table) != int(params.NumParams) || table[params.PreGain].Text != "-100" {
		t.Errorf("table = %+v", table)
	}

	resp, err = http.Post(url+"/params", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("POST /params: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d, want 405", resp.StatusCode)
	}
}

func TestServerSendAfterClose(t *testing.T) {
	s := NewServer(params.NewStore(), "")
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Send(nil); !errors.Is(err, ErrServerClosed) {
		t.Errorf("Send after Close = %v, want ErrServerClosed", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestServerStart(t *testing.T) {
	s := NewServer(params.NewStore(), "127.0.0.1:0")
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Close()

	conn := dial(t, "http://"+s.Addr())
	if u := readUpdate(t, conn); len(u.Params) != int(params.NumParams) {
		t.Errorf("got %d params", len(u.Params))
	}
}

func TestLoggingTransport(t *testing.T) {
	lt := NewLoggingTransport()
	if err := lt.Send(params.NewStore().Snapshot()); err != nil {
		t.Errorf("Send: %v", err)
	}
	if err := lt.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
