package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"

	"queue-systemv1/internal/queue"
	"queue-systemv1/internal/worker"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:    1024,
	WriteBufferSize:   1024,
	EnableCompression: true,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// SetCORS applies permissive CORS headers so browser dashboards can reach
// the control API from any origin.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// RegisterRoutes wires the WebSocket status stream and the REST control
// endpoints onto mux. Worker start requests inherit ctx so running workers
// stop when the process shuts down.
func (h *Hub) RegisterRoutes(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/ws", h.handleWS)
	mux.HandleFunc("/api/status", h.handleStatus)
	mux.HandleFunc("/api/workers/producers", h.workerHandler(ctx, h.Pool.StartProducer, h.Pool.StopProducer, "producers"))
	mux.HandleFunc("/api/workers/consumers", h.workerHandler(ctx, h.Pool.StartConsumer, h.Pool.StopConsumer, "consumers"))
	mux.HandleFunc("/api/resize", h.handleResize)
}

func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan []byte, 16),
		hub:  h,
	}
	h.register(client)

	go client.writePump()
	go client.readPump()
}

func (h *Hub) handleStatus(w http.ResponseWriter, r *http.Request) {
	SetCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.Status())
}

func (h *Hub) workerHandler(ctx context.Context, start func(context.Context) (int, error), stop func() (int, error), kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		switch r.Method {
		case http.MethodOptions:
			w.WriteHeader(http.StatusNoContent)
		case http.MethodPost:
			id, err := start(ctx)
			if err != nil {
				writeWorkerErr(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, map[string]any{"id": id, kind: h.countOf(kind)})
		case http.MethodDelete:
			id, err := stop()
			if err != nil {
				writeWorkerErr(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"id": id, kind: h.countOf(kind)})
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func (h *Hub) countOf(kind string) int {
	if kind == "producers" {
		return h.Pool.Producers()
	}
	return h.Pool.Consumers()
}

type resizeRequest struct {
	Delta int `json:"delta"`
}

func (h *Hub) handleResize(w http.ResponseWriter, r *http.Request) {
	SetCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req resizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Delta == 0 {
		http.Error(w, "delta must be non-zero", http.StatusBadRequest)
		return
	}

	if err := h.Resize(req.Delta); err != nil {
		switch {
		case errors.Is(err, queue.ErrShrinkBelowOccupancy):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, queue.ErrShrinkWaitTimeout):
			http.Error(w, err.Error(), http.StatusGatewayTimeout)
		case errors.Is(err, queue.ErrCancelled):
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"capacity":  h.Queue.Capacity(),
		"occupancy": h.Queue.Occupancy(),
	})
}

func writeWorkerErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, worker.ErrPoolLimit):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, worker.ErrPoolEmpty):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
