package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pengelbrecht/tally/internal/live"
	"github.com/pengelbrecht/tally/internal/runner"
	"github.com/pengelbrecht/tally/internal/runrecord"
)

func TestServeLive(t *testing.T) {
	var stderr bytes.Buffer
	a := &app{stdout: io.Discard, stderr: &stderr, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	hub := live.NewHub(live.WithLogger(a.logger))
	defer hub.Close()

	addr, shutdown, err := a.serveLive("127.0.0.1:0", hub)
	if err != nil {
		t.Fatalf("serveLive: %v", err)
	}
	defer shutdown()
	if !strings.Contains(stderr.String(), "ws://"+addr.String()+"/ws") {
		t.Errorf("stderr = %q", stderr.String())
	}
	base := "http://" + addr.String()

	resp, err := http.Get(base + "/latest")
	if err != nil {
		t.Fatalf("GET /latest: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("latest before any run = %d, want 404", resp.StatusCode)
	}

	rec := &runrecord.Record{
		ID:      runrecord.NewID(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		Summary: runner.Summary{Scenarios: 2, Passed: 2, Steps: 6},
	}
	a.broadcaster(hub)(rec)

	resp, err = http.Get(base + "/latest")
	if err != nil {
		t.Fatalf("GET /latest: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("latest = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	var got live.RunMessage
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode latest: %v", err)
	}
	if got.Type != "run" || got.Run == nil || got.Run.ID != rec.ID {
		t.Errorf("latest = %+v", got)
	}

	// A client connecting after the run receives it straight away.
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr.String()+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg live.RunMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Run == nil || msg.Run.Summary.Passed != 2 {
		t.Errorf("ws message = %+v", msg)
	}
}

func TestServeLiveBadAddress(t *testing.T) {
	a := &app{stdout: io.Discard, stderr: io.Discard, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	hub := live.NewHub()
	defer hub.Close()

	if _, _, err := a.serveLive("not-an-address", hub); err == nil {
		t.Fatal("expected listen error")
	}
}
