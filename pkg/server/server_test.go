package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/godotkit/mcpbridge/pkg/command"
	"github.com/godotkit/mcpbridge/pkg/protocol"
)

func startTestServer(t *testing.T, config *ServerConfig) (*Server, *httptest.Server) {
	t.Helper()

	srv := New(config, command.NewBaseline(slog.Default()))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readResponse(t *testing.T, conn *websocket.Conn) *protocol.Response {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var resp protocol.Response
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read response: %v", err)
	}
	return &resp
}

func TestServer_GetProjectInfoScenario(t *testing.T) {
	_, ts := startTestServer(t, nil)
	conn := dial(t, ts)

	if err := conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"id":"t1","command":"GetProjectInfo","params":{}}`)); err != nil {
		t.Fatalf("write: %v", err)
	}

	resp := readResponse(t, conn)
	if resp.Status != protocol.StatusSuccess {
		t.Fatalf("status=%s, error=%q", resp.Status, resp.Error)
	}
	if resp.ID == nil || *resp.ID != "t1" {
		t.Fatalf("id=%v, want t1", resp.ID)
	}
	if resp.Data["command"] != "GetProjectInfo" {
		t.Fatalf("data.command=%v, want GetProjectInfo", resp.Data["command"])
	}
	if _, ok := resp.Data["message"].(string); !ok {
		t.Fatalf("data.message missing: %v", resp.Data)
	}
}

func TestServer_UnknownCommandScenario(t *testing.T) {
	_, ts := startTestServer(t, nil)
	conn := dial(t, ts)

	if err := conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"id":"t2","command":"Bogus","params":{}}`)); err != nil {
		t.Fatalf("write: %v", err)
	}

	resp := readResponse(t, conn)
	if resp.Status != protocol.StatusError || resp.Error != "Unknown command: Bogus" {
		t.Fatalf("resp=%+v, want exact unknown-command error", resp)
	}
	if resp.ID == nil || *resp.ID != "t2" {
		t.Fatalf("id=%v, want t2", resp.ID)
	}
}

func TestServer_MalformedJSONKeepsSessionOpen(t *testing.T) {
	srv, ts := startTestServer(t, nil)
	conn := dial(t, ts)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`not json`)); err != nil {
		t.Fatalf("write: %v", err)
	}

	resp := readResponse(t, conn)
	if resp.Status != protocol.StatusError {
		t.Fatalf("status=%s, want error", resp.Status)
	}
	if resp.ID != nil {
		t.Fatalf("id=%v, want null for unparseable payload", *resp.ID)
	}
	if !strings.Contains(resp.Error, "Invalid JSON") {
		t.Fatalf("error=%q, want parse failure mention", resp.Error)
	}

	// The same connection must still serve valid requests.
	if err := conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"id":"after","command":"GetProjectInfo","params":{}}`)); err != nil {
		t.Fatalf("write after malformed message: %v", err)
	}
	resp = readResponse(t, conn)
	if resp.Status != protocol.StatusSuccess || resp.ID == nil || *resp.ID != "after" {
		t.Fatalf("session did not survive malformed input: %+v", resp)
	}
	if srv.Sessions().Count() != 1 {
		t.Fatalf("Count()=%d, want 1 live session", srv.Sessions().Count())
	}
}

func TestServer_NullIDEchoedAsNull(t *testing.T) {
	_, ts := startTestServer(t, nil)
	conn := dial(t, ts)

	if err := conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"id":null,"command":"GetProjectInfo","params":{}}`)); err != nil {
		t.Fatalf("write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		t.Fatalf("response not valid JSON: %v", err)
	}
	id, present := raw["id"]
	if !present || id != nil {
		t.Fatalf("id=%v (present=%v), want explicit null", id, present)
	}
}

func TestServer_SequentialResponsesPerSession(t *testing.T) {
	const perSession = 50

	_, ts := startTestServer(t, nil)

	runSession := func(prefix string) error {
		url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
		conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			return fmt.Errorf("dial: %w", err)
		}
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		defer conn.Close()

		// Pipeline all requests, then read every response: per-session
		// dispatch is strictly sequential, so responses must arrive in
		// request order with no foreign ids mixed in.
		for i := 0; i < perSession; i++ {
			msg := fmt.Sprintf(`{"id":"%s-%02d","command":"GetProjectInfo","params":{}}`, prefix, i)
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return fmt.Errorf("write %d: %w", i, err)
			}
		}
		for i := 0; i < perSession; i++ {
			conn.SetReadDeadline(time.Now().Add(10 * time.Second))
			var r protocol.Response
			if err := conn.ReadJSON(&r); err != nil {
				return fmt.Errorf("read %d: %w", i, err)
			}
			want := fmt.Sprintf("%s-%02d", prefix, i)
			if r.ID == nil || *r.ID != want {
				return fmt.Errorf("response %d has id %v, want %s", i, r.ID, want)
			}
			if r.Status != protocol.StatusSuccess {
				return fmt.Errorf("response %d status=%s error=%q", i, r.Status, r.Error)
			}
		}
		return nil
	}

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, prefix := range []string{"a", "b"} {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			errs <- runSession(p)
		}(prefix)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}
}

func TestServer_MaxSessionsRejectsExtraClients(t *testing.T) {
	_, ts := startTestServer(t, &ServerConfig{MaxSessions: 1})

	first := dial(t, ts)

	// Complete one exchange so the first session is registered before the
	// second dial races in.
	if err := first.WriteMessage(websocket.TextMessage,
		[]byte(`{"id":"warm","command":"GetProjectInfo","params":{}}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	readResponse(t, first)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	second, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("second dial should upgrade before rejection: %v", err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	defer second.Close()

	second.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err = second.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseTryAgainLater) {
		t.Fatalf("read error=%v, want close %d", err, websocket.CloseTryAgainLater)
	}
}

func TestServer_ShutdownClosesSessions(t *testing.T) {
	srv, ts := startTestServer(t, nil)
	conn := dial(t, ts)

	if srv.Sessions().Count() != 1 {
		t.Fatalf("Count()=%d, want 1", srv.Sessions().Count())
	}

	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("connection should be closed after shutdown")
	}

	deadline := time.Now().Add(2 * time.Second)
	for srv.Sessions().Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("Count()=%d after shutdown, want 0", srv.Sessions().Count())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestServer_SessionIsolation(t *testing.T) {
	srv, ts := startTestServer(t, nil)

	victim := dial(t, ts)
	survivor := dial(t, ts)

	// Abruptly drop one client; the other session must be unaffected.
	victim.Close()

	deadline := time.Now().Add(2 * time.Second)
	for srv.Sessions().Count() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("Count()=%d, want 1 after one client dropped", srv.Sessions().Count())
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := survivor.WriteMessage(websocket.TextMessage,
		[]byte(`{"id":"still-alive","command":"GetProjectInfo","params":{}}`)); err != nil {
		t.Fatalf("write on surviving session: %v", err)
	}
	resp := readResponse(t, survivor)
	if resp.Status != protocol.StatusSuccess || *resp.ID != "still-alive" {
		t.Fatalf("surviving session broken: %+v", resp)
	}
}

func TestServer_HealthEndpoint(t *testing.T) {
	_, ts := startTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d, want 200", resp.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("body=%v", body)
	}
}

func TestServer_MetricsEndpoint(t *testing.T) {
	_, ts := startTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d, want 200", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), "mcpbridge_") {
		t.Fatal("metrics exposition missing mcpbridge namespace")
	}
}
