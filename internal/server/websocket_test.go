package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/zstd"

	"github.com/Scrimzay/conquestsim/internal/types"
	"github.com/Scrimzay/conquestsim/internal/world"
)

type wsMessage struct {
	Action   string          `json:"action"`
	Request  string          `json:"request"`
	Code     types.Code      `json:"code"`
	Data     json.RawMessage `json:"data"`
	Snapshot *world.Snapshot `json:"snapshot"`
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitFor(t *testing.T, conn *websocket.Conn, match func(wsMessage) bool) wsMessage {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		_ = conn.SetReadDeadline(deadline)
		_, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var msg wsMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("decode %q: %v", raw, err)
		}
		if match(msg) {
			return msg
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, body map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(body); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWebsocketJoinPlayAndDisconnect(t *testing.T) {
	f := newFixture(t, Options{})
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	conn := dial(t, srv, "")
	first := waitFor(t, conn, func(m wsMessage) bool { return m.Action == types.ActionSnapshot })
	if first.Snapshot == nil || first.Snapshot.Width != 8 {
		t.Fatalf("initial snapshot = %+v", first.Snapshot)
	}

	send(t, conn, map[string]any{"action": "join", "name": "Ann"})
	joined := waitFor(t, conn, func(m wsMessage) bool { return m.Action == types.ActionResult })
	if joined.Code != types.CodeOK || joined.Request != types.ActionJoin {
		t.Fatalf("join reply = %+v", joined)
	}
	var data struct {
		ID world.PlayerID `json:"id"`
	}
	if err := json.Unmarshal(joined.Data, &data); err != nil || data.ID == "" {
		t.Fatalf("join data = %s", joined.Data)
	}

	send(t, conn, map[string]any{"action": "spawn", "player": data.ID, "x": 2, "y": 2})
	spawned := waitFor(t, conn, func(m wsMessage) bool { return m.Action == types.ActionResult })
	if spawned.Code != types.CodeOK {
		t.Fatalf("spawn reply = %+v", spawned)
	}
	waitFor(t, conn, func(m wsMessage) bool {
		return m.Snapshot != nil && m.Snapshot.Cells[2*8+2].Owner == data.ID
	})

	send(t, conn, map[string]any{"action": "spawn", "player": data.ID, "x": 0, "y": 0})
	water := waitFor(t, conn, func(m wsMessage) bool { return m.Action == types.ActionResult })
	if water.Code != types.CodeRejected {
		t.Fatalf("water spawn reply = %+v", water)
	}

	conn.Close()
	eventually(t, func() bool { return f.world.PlayerCount() == 0 })
	if f.world.Owner(2, 2) != world.NoOwner {
		t.Fatal("territory not released on disconnect")
	}
}

func TestWebsocketBoundPlayerLeavesOnClose(t *testing.T) {
	f := newFixture(t, Options{})
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	id, _ := f.world.Join("Bea")
	conn := dial(t, srv, "?player="+string(id))
	waitFor(t, conn, func(m wsMessage) bool { return m.Action == types.ActionSnapshot })

	conn.Close()
	eventually(t, func() bool { return f.world.PlayerCount() == 0 })
}

func TestWebsocketConnectionHoldsOnePlayer(t *testing.T) {
	f := newFixture(t, Options{})
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	conn := dial(t, srv, "")
	send(t, conn, map[string]any{"action": "join", "name": "Ann"})
	if r := waitFor(t, conn, func(m wsMessage) bool { return m.Action == types.ActionResult }); r.Code != types.CodeOK {
		t.Fatalf("first join = %+v", r)
	}
	send(t, conn, map[string]any{"action": "join", "name": "Bob"})
	if r := waitFor(t, conn, func(m wsMessage) bool { return m.Action == types.ActionResult }); r.Code != types.CodeRejected || r.Request != types.ActionJoin {
		t.Fatalf("second join = %+v", r)
	}
	if n := f.world.PlayerCount(); n != 1 {
		t.Fatalf("players = %d, want 1", n)
	}

	id, _ := f.world.Join("Cat")
	held := dial(t, srv, "?player="+string(id))
	waitFor(t, held, func(m wsMessage) bool { return m.Action == types.ActionSnapshot })
	send(t, held, map[string]any{"action": "join", "name": "Dan"})
	if r := waitFor(t, held, func(m wsMessage) bool { return m.Action == types.ActionResult }); r.Code != types.CodeRejected {
		t.Fatalf("join on bound connection = %+v", r)
	}
	if n := f.world.PlayerCount(); n != 2 {
		t.Fatalf("players = %d, want 2", n)
	}

	conn.Close()
	held.Close()
	eventually(t, func() bool { return f.world.PlayerCount() == 0 })
}

func TestWebsocketPlayerBindsToOneConnection(t *testing.T) {
	f := newFixture(t, Options{})
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	id, _ := f.world.Join("Eve")
	first := dial(t, srv, "?player="+string(id))
	waitFor(t, first, func(m wsMessage) bool { return m.Action == types.ActionSnapshot })

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?player=" + string(id)
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("second connection for the same player was accepted")
	}
	if resp == nil || resp.StatusCode != http.StatusConflict {
		t.Fatalf("second dial response = %v", resp)
	}
	if _, ok := f.world.Player(id); !ok {
		t.Fatal("refused connection removed the player")
	}

	first.Close()
	eventually(t, func() bool { return f.world.PlayerCount() == 0 })

	// the player left with its connection, so the id is now unknown
	_, resp, err = websocket.DefaultDialer.Dial(url, nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("dial for removed player: err=%v resp=%v", err, resp)
	}
}

func TestWebsocketMalformedAndUnknown(t *testing.T) {
	f := newFixture(t, Options{})
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	conn := dial(t, srv, "")
	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatal(err)
	}
	bad := waitFor(t, conn, func(m wsMessage) bool { return m.Action == types.ActionResult })
	if bad.Code != types.CodeReqParamError {
		t.Fatalf("malformed reply = %+v", bad)
	}

	send(t, conn, map[string]any{"action": "fly"})
	unknown := waitFor(t, conn, func(m wsMessage) bool { return m.Action == types.ActionResult })
	if unknown.Code != types.CodeUnknownAction {
		t.Fatalf("unknown reply = %+v", unknown)
	}
}

func TestWebsocketRateLimit(t *testing.T) {
	f := newFixture(t, Options{CommandsPerSecond: 0.001, CommandBurst: 1})
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	conn := dial(t, srv, "")
	send(t, conn, map[string]any{"action": "fly"})
	send(t, conn, map[string]any{"action": "fly"})
	waitFor(t, conn, func(m wsMessage) bool { return m.Code == types.CodeUnknownAction })
	limited := waitFor(t, conn, func(m wsMessage) bool { return m.Action == types.ActionResult })
	if limited.Code != types.CodeRateLimited {
		t.Fatalf("second reply = %+v", limited)
	}
}

func TestWebsocketZstdFrames(t *testing.T) {
	f := newFixture(t, Options{})
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	conn := dial(t, srv, "?encoding=zstd")
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	msgType, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if msgType != websocket.BinaryMessage {
		t.Fatalf("frame type = %d", msgType)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer dec.Close()
	plain, err := dec.DecodeAll(raw, nil)
	if err != nil {
		t.Fatal(err)
	}
	var msg wsMessage
	if err := json.Unmarshal(plain, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Action != types.ActionSnapshot || msg.Snapshot == nil || len(msg.Snapshot.Cells) != 64 {
		t.Fatalf("decoded = %+v", msg)
	}
}

func TestWebsocketRejectsBadQuery(t *testing.T) {
	f := newFixture(t, Options{})
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	for _, q := range []string{"?encoding=br", "?player=ghost"} {
		_, resp, err := websocket.DefaultDialer.Dial(base+q, nil)
		if err == nil {
			t.Fatalf("%s: dial succeeded", q)
		}
		if resp == nil || resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: response = %v", q, resp)
		}
	}
}

func TestHubPublishReachesClients(t *testing.T) {
	f := newFixture(t, Options{})
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	a := dial(t, srv, "")
	b := dial(t, srv, "")
	eventually(t, func() bool { return f.hub.Clients() == 2 })

	f.world.Tick()
	f.hub.Publish(f.world.Snapshot())
	for _, conn := range []*websocket.Conn{a, b} {
		waitFor(t, conn, func(m wsMessage) bool { return m.Snapshot != nil && m.Snapshot.Tick == 1 })
	}
}
