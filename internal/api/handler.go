package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/obsidianstack/serialbridge/internal/serialconn"
	"github.com/obsidianstack/serialbridge/internal/store"
	"github.com/obsidianstack/serialbridge/pkg/types"
)

// maxBodyBytes bounds the connect request body.
const maxBodyBytes = 4 << 10

// Controller is the connection manager as seen by the HTTP layer.
type Controller interface {
	ListAvailable() []types.PortInfo
	Connect(path string, baudRate int) (serialconn.Snapshot, error)
	Disconnect()
	Status() serialconn.Snapshot
}

// ClientCounter reports the number of connected push clients.
type ClientCounter interface {
	Count() int
}

// Handler is the HTTP handler for all /api/* endpoints.
type Handler struct {
	ctrl    Controller
	store   *store.Store
	clients ClientCounter
	mux     *http.ServeMux
}

// New creates a Handler and registers all routes. st and clients may be nil,
// in which case /api/latest is empty and the client count is zero.
func New(ctrl Controller, st *store.Store, clients ClientCounter) http.Handler {
	h := &Handler{ctrl: ctrl, store: st, clients: clients, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/ports", h.ports)
	h.mux.HandleFunc("/api/connect", h.connect)
	h.mux.HandleFunc("/api/disconnect", h.disconnect)
	h.mux.HandleFunc("/api/status", h.status)
	h.mux.HandleFunc("/api/latest", h.latest)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// ports returns GET /api/ports.
func (h *Handler) ports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, PortsResponse{Ports: h.ctrl.ListAvailable()})
}

// connect handles POST /api/connect.
func (h *Handler) connect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req ConnectRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid request body")
		return
	}

	st, err := h.ctrl.Connect(req.Path, req.BaudRate)
	switch {
	case errors.Is(err, serialconn.ErrPathRequired):
		jsonErr(w, http.StatusBadRequest, "Port path is required")
		return
	case err != nil:
		jsonErr(w, http.StatusInternalServerError, err.Error())
		return
	}

	jsonResp(w, http.StatusOK, ConnectResponse{
		Connected: st.Connected,
		Port:      st.Path,
		BaudRate:  st.BaudRate,
	})
}

// disconnect handles POST /api/disconnect.
func (h *Handler) disconnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	h.ctrl.Disconnect()
	jsonResp(w, http.StatusOK, DisconnectResponse{Connected: false})
}

// status returns GET /api/status.
func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	st := h.ctrl.Status()
	resp := StatusResponse{
		Connected: st.Connected,
		Mode:      st.Mode,
		Port:      st.Path,
		BaudRate:  st.BaudRate,
	}
	if !st.Since.IsZero() {
		resp.Since = st.Since.UTC().Format(time.RFC3339)
	}
	if h.clients != nil {
		resp.Clients = h.clients.Count()
	}
	jsonResp(w, http.StatusOK, resp)
}

// latest returns GET /api/latest.
func (h *Handler) latest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resp := LatestResponse{Readings: []LatestReading{}}
	if h.store != nil {
		for _, e := range h.store.List() {
			resp.Readings = append(resp.Readings, LatestReading{
				Source:    e.Source,
				UpdatedAt: e.UpdatedAt.UTC().Format(time.RFC3339),
				Count:     e.Count,
				Message:   e.Message,
			})
		}
	}
	jsonResp(w, http.StatusOK, resp)
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
