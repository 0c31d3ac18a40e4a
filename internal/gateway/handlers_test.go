package gateway

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"queue-systemv1/internal/model"
	"queue-systemv1/internal/queue"
	"queue-systemv1/internal/worker"
)

func testMsg(typ byte) model.Message {
	return model.Seal(model.Message{Type: typ, Payload: []byte{typ}})
}

func newTestHub(t *testing.T) (*Hub, *queue.Lifecycle) {
	t.Helper()
	lc := queue.NewLifecycle()
	q, err := queue.New(4, queue.ModeMonitor, lc)
	if err != nil {
		t.Fatalf("queue.New: %v", err)
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	pool := worker.NewPool(q, log, nil, worker.PoolConfig{
		MaxProducers:     2,
		MaxConsumers:     2,
		ProducerDelayMin: time.Millisecond,
		ProducerDelayMax: 2 * time.Millisecond,
		ConsumerDelayMin: time.Millisecond,
		ConsumerDelayMax: 2 * time.Millisecond,
	})
	return NewHub(q, pool, nil, log, time.Second), lc
}

func newTestServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	hub.RegisterRoutes(context.Background(), mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHandleStatus(t *testing.T) {
	hub, _ := newTestHub(t)
	srv := newTestServer(t, hub)

	resp, err := http.Get(srv.URL + "/api/status")
	if err != nil {
		t.Fatalf("GET /api/status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var st worker.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if st.Capacity != 4 {
		t.Errorf("capacity = %d, want 4", st.Capacity)
	}
	if st.Mode != "cond" {
		t.Errorf("mode = %q, want cond", st.Mode)
	}
}

func TestWorkerEndpoints(t *testing.T) {
	hub, lc := newTestHub(t)
	srv := newTestServer(t, hub)
	defer func() {
		lc.RequestCancellation()
		hub.Pool.Shutdown()
	}()

	// Removing from an empty pool is a 404.
	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/workers/producers", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE producers: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("delete on empty pool: status = %d, want 404", resp.StatusCode)
	}

	// Start up to the limit, then expect a conflict.
	for i := 0; i < 2; i++ {
		resp, err = http.Post(srv.URL+"/api/workers/producers", "application/json", nil)
		if err != nil {
			t.Fatalf("POST producers: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("start producer %d: status = %d, want 201", i, resp.StatusCode)
		}
	}
	resp, err = http.Post(srv.URL+"/api/workers/producers", "application/json", nil)
	if err != nil {
		t.Fatalf("POST producers over limit: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("start over limit: status = %d, want 409", resp.StatusCode)
	}
	if got := hub.Pool.Producers(); got != 2 {
		t.Fatalf("producers = %d, want 2", got)
	}

	req, _ = http.NewRequest(http.MethodDelete, srv.URL+"/api/workers/producers", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE producers: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stop producer: status = %d, want 200", resp.StatusCode)
	}
	if got := hub.Pool.Producers(); got != 1 {
		t.Fatalf("producers after stop = %d, want 1", got)
	}
}

func TestHandleResize(t *testing.T) {
	hub, _ := newTestHub(t)
	srv := newTestServer(t, hub)

	resp, err := http.Post(srv.URL+"/api/resize", "application/json", strings.NewReader(`{"delta": 3}`))
	if err != nil {
		t.Fatalf("POST /api/resize: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("resize: status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Capacity  int `json:"capacity"`
		Occupancy int `json:"occupancy"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode resize response: %v", err)
	}
	if body.Capacity != 7 {
		t.Errorf("capacity = %d, want 7", body.Capacity)
	}

	resp, err = http.Post(srv.URL+"/api/resize", "application/json", strings.NewReader(`{"delta": 0}`))
	if err != nil {
		t.Fatalf("POST zero delta: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("zero delta: status = %d, want 400", resp.StatusCode)
	}
}

func TestHandleResize_ShrinkBelowOccupancy(t *testing.T) {
	hub, _ := newTestHub(t)
	srv := newTestServer(t, hub)

	for i := 0; i < 4; i++ {
		if err := hub.Queue.Add(testMsg(byte(i))); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	resp, err := http.Post(srv.URL+"/api/resize", "application/json", strings.NewReader(`{"delta": -2}`))
	if err != nil {
		t.Fatalf("POST shrink: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("shrink below occupancy: status = %d, want 409", resp.StatusCode)
	}
	if got := hub.Queue.Capacity(); got != 4 {
		t.Errorf("capacity changed to %d on rejected shrink", got)
	}
}
