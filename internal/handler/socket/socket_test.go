package socket_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"github.com/playperu/sketchroom/internal/handler/socket"
	"github.com/playperu/sketchroom/internal/hub"
)

type call struct {
	connID string
	event  string
	data   string
}

// echoDispatcher joins every connection to one room and rebroadcasts events.
type echoDispatcher struct {
	hub *hub.Hub

	mu          sync.Mutex
	calls       []call
	disconnects map[string]string
}

func (d *echoDispatcher) Dispatch(connID, event string, data json.RawMessage) {
	d.mu.Lock()
	d.calls = append(d.calls, call{connID, event, string(data)})
	d.mu.Unlock()

	d.hub.Join("lobby", connID)
	d.hub.Broadcast("lobby", event+"Ack", data)
}

func (d *echoDispatcher) Disconnect(connID, reason string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.disconnects == nil {
		d.disconnects = make(map[string]string)
	}
	d.disconnects[connID] = reason
}

func (d *echoDispatcher) reasons() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []string
	for _, r := range d.disconnects {
		out = append(out, r)
	}
	return out
}

func setup(t *testing.T) (*hub.Hub, *echoDispatcher, string) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := hub.New(logger)
	d := &echoDispatcher{hub: h}
	srv := httptest.NewServer(socket.NewHandler(logger, h, d, nil).Routes())
	t.Cleanup(srv.Close)
	return h, d, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestRoundTrip(t *testing.T) {
	_, d, url := setup(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	// Garbage and binary frames are skipped without closing the socket.
	if err := conn.Write(ctx, websocket.MessageText, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.Write(ctx, websocket.MessageBinary, []byte{1, 2, 3}); err != nil {
		t.Fatalf("write: %v", err)
	}
	frame := `{"event":"sendMessage","data":{"roomId":"R1","message":"hola"}}`
	if err := conn.Write(ctx, websocket.MessageText, []byte(frame)); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, msg, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var env hub.Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		t.Fatalf("decoding reply: %v", err)
	}
	if env.Event != "sendMessageAck" {
		t.Errorf("event = %q, want sendMessageAck", env.Event)
	}
	if got, want := string(env.Data), `{"roomId":"R1","message":"hola"}`; got != want {
		t.Errorf("data = %s, want %s", got, want)
	}

	d.mu.Lock()
	n := len(d.calls)
	d.mu.Unlock()
	if n != 1 {
		t.Errorf("dispatched %d events, want 1", n)
	}
}

func TestClientCloseReason(t *testing.T) {
	h, d, url := setup(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.Close(websocket.StatusNormalClosure, "bye")

	waitFor(t, func() bool { return len(d.reasons()) == 1 && h.Len() == 0 })
	if got := d.reasons()[0]; got != socket.ReasonClient {
		t.Errorf("reason = %q, want %q", got, socket.ReasonClient)
	}
}

func TestServerShutdownReason(t *testing.T) {
	h, d, url := setup(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()
	waitFor(t, func() bool { return h.Len() == 1 })

	h.Close()

	_, _, err = conn.Read(ctx)
	if got := websocket.CloseStatus(err); got != websocket.StatusGoingAway {
		t.Errorf("close status = %v, want %v", got, websocket.StatusGoingAway)
	}
	waitFor(t, func() bool { return len(d.reasons()) == 1 })
	if got := d.reasons()[0]; got != socket.ReasonServer {
		t.Errorf("reason = %q, want %q", got, socket.ReasonServer)
	}
}

func TestRejectsForeignOrigin(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := hub.New(logger)
	srv := httptest.NewServer(socket.NewHandler(logger, h, &echoDispatcher{hub: h}, []string{"game.example.com"}).Routes())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	header := map[string][]string{"Origin": {"https://evil.example.org"}}
	_, resp, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), &websocket.DialOptions{HTTPHeader: header})
	if err == nil {
		t.Fatal("dial succeeded from a foreign origin")
	}
	if resp == nil || resp.StatusCode != 403 {
		t.Errorf("response = %v, want 403", resp)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		serverClosed bool
		want         string
	}{
		{"normal close", websocket.CloseError{Code: websocket.StatusNormalClosure}, false, socket.ReasonClient},
		{"tab closed", websocket.CloseError{Code: websocket.StatusGoingAway}, false, socket.ReasonClient},
		{"too big", websocket.CloseError{Code: websocket.StatusMessageTooBig}, false, socket.ReasonServer},
		{"server initiated", websocket.CloseError{Code: websocket.StatusGoingAway}, true, socket.ReasonServer},
		{"request cancelled", context.Canceled, false, socket.ReasonServer},
		{"reset", errors.New("connection reset by peer"), false, socket.ReasonNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := socket.Classify(tt.err, tt.serverClosed); got != tt.want {
				t.Errorf("Classify = %q, want %q", got, tt.want)
			}
		})
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
