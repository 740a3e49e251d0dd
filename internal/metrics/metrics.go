// Package metrics keeps the bridge's counters and gauges and exposes them in
// the Prometheus text exposition format.
//
// Values are plain atomics; Handler builds client_model metric families on
// each scrape and encodes them with expfmt.
package metrics

import (
	"net/http"
	"sort"
	"sync"
	"sync/atomic"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Connect results recorded by ConnectAttempt.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Registry holds all bridge metrics. The zero value is not usable; call New.
type Registry struct {
	jsonLines    atomic.Uint64
	rawLines     atomic.Uint64
	broadcasts   atomic.Uint64
	deviceErrors atomic.Uint64
	connected    atomic.Bool
	clients      atomic.Int64

	mu       sync.Mutex
	connects map[string]uint64
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{connects: make(map[string]uint64)}
}

// LineReceived counts one delivered line; parsed reports whether it was JSON.
func (r *Registry) LineReceived(parsed bool) {
	if parsed {
		r.jsonLines.Add(1)
		return
	}
	r.rawLines.Add(1)
}

// Broadcast counts one message fanned out to clients.
func (r *Registry) Broadcast() { r.broadcasts.Add(1) }

// DeviceError counts one runtime device failure.
func (r *Registry) DeviceError() { r.deviceErrors.Add(1) }

// ConnectAttempt counts a connect request by result.
func (r *Registry) ConnectAttempt(result string) {
	r.mu.Lock()
	r.connects[result]++
	r.mu.Unlock()
}

// SetConnected records whether a source is connected.
func (r *Registry) SetConnected(v bool) { r.connected.Store(v) }

// SetClients records the number of WebSocket clients.
func (r *Registry) SetClients(n int) { r.clients.Store(int64(n)) }

// Families returns the current values as metric families, sorted by name.
func (r *Registry) Families() []*dto.MetricFamily {
	var connected float64
	if r.connected.Load() {
		connected = 1
	}

	r.mu.Lock()
	results := make([]string, 0, len(r.connects))
	for k := range r.connects {
		results = append(results, k)
	}
	sort.Strings(results)
	connectMetrics := make([]*dto.Metric, 0, len(results))
	for _, k := range results {
		connectMetrics = append(connectMetrics, counter(float64(r.connects[k]), label("result", k)))
	}
	r.mu.Unlock()

	return []*dto.MetricFamily{
		family("serialbridge_broadcasts_total", "Messages fanned out to WebSocket clients.",
			dto.MetricType_COUNTER, counter(float64(r.broadcasts.Load()))),
		family("serialbridge_connected", "1 while a serial or simulated source is connected.",
			dto.MetricType_GAUGE, gauge(connected)),
		family("serialbridge_connects_total", "Connect requests by result.",
			dto.MetricType_COUNTER, connectMetrics...),
		family("serialbridge_device_errors_total", "Runtime device errors that ended a connection.",
			dto.MetricType_COUNTER, counter(float64(r.deviceErrors.Load()))),
		family("serialbridge_lines_total", "Lines delivered, by whether they parsed as JSON.",
			dto.MetricType_COUNTER,
			counter(float64(r.jsonLines.Load()), label("kind", "json")),
			counter(float64(r.rawLines.Load()), label("kind", "raw"))),
		family("serialbridge_ws_clients", "Connected WebSocket clients.",
			dto.MetricType_GAUGE, gauge(float64(r.clients.Load()))),
	}
}

// Handler serves GET /metrics.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		format := expfmt.NewFormat(expfmt.TypeTextPlain)
		w.Header().Set("Content-Type", string(format))
		enc := expfmt.NewEncoder(w, format)
		for _, mf := range r.Families() {
			if len(mf.GetMetric()) == 0 {
				continue
			}
			if err := enc.Encode(mf); err != nil {
				return
			}
		}
	})
}

// --- dto builders ------------------------------------------------------------

func ptr[T any](v T) *T { return &v }

func family(name, help string, typ dto.MetricType, ms ...*dto.Metric) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   ptr(name),
		Help:   ptr(help),
		Type:   ptr(typ),
		Metric: ms,
	}
}

func counter(v float64, labels ...*dto.LabelPair) *dto.Metric {
	return &dto.Metric{Label: labels, Counter: &dto.Counter{Value: ptr(v)}}
}

func gauge(v float64) *dto.Metric {
	return &dto.Metric{Gauge: &dto.Gauge{Value: ptr(v)}}
}

func label(name, value string) *dto.LabelPair {
	return &dto.LabelPair{Name: ptr(name), Value: ptr(value)}
}
