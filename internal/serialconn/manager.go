package serialconn

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/obsidianstack/serialbridge/internal/metrics"
	"github.com/obsidianstack/serialbridge/internal/sim"
	"github.com/obsidianstack/serialbridge/pkg/types"
)

// Connection modes reported by Status.
const (
	ModeNone   = "none"
	ModeSerial = "serial"
	ModeMock   = "mock"
)

const (
	defaultBaudRate     = 9600
	defaultMaxLineBytes = 64 * 1024
	defaultMockInterval = time.Second
)

// Broadcaster fans a message out to every listener.
type Broadcaster interface {
	Broadcast(msg any)
}

// Recorder keeps the most recent data message per source.
type Recorder interface {
	Record(source string, msg types.DataMessage)
}

// Options configures a Manager. Broadcaster is required; every other field
// has a working default.
type Options struct {
	Broadcaster Broadcaster
	Recorder    Recorder
	Metrics     *metrics.Registry
	Logger      *slog.Logger

	Open Opener
	List Lister

	MockEnabled     bool
	MockInterval    time.Duration
	MockSmoothing   float64
	DefaultBaudRate int
	MaxLineBytes    int

	// NewSimulator overrides the simulator built for each mock connection.
	NewSimulator func() *sim.Simulator
	Now          func() time.Time
}

// Snapshot is a point-in-time view of the connection state.
type Snapshot struct {
	Connected bool
	Mode      string
	Path      string
	BaudRate  int
	Since     time.Time
}

// Manager owns the single active source. All state changes happen under mu.
type Manager struct {
	out     Broadcaster
	rec     Recorder
	metrics *metrics.Registry
	logger  *slog.Logger
	open    Opener
	list    Lister
	newSim  func() *sim.Simulator
	now     func() time.Time

	mockEnabled  atomic.Bool
	mockInterval time.Duration
	defaultBaud  int
	maxLine      int

	mu     sync.Mutex
	gen    uint64
	mode   string
	path   string
	baud   int
	since  time.Time
	port   Port
	cancel context.CancelFunc
}

// New creates a disconnected Manager.
func New(opts Options) *Manager {
	m := &Manager{
		out:          opts.Broadcaster,
		rec:          opts.Recorder,
		metrics:      opts.Metrics,
		logger:       opts.Logger,
		open:         opts.Open,
		list:         opts.List,
		newSim:       opts.NewSimulator,
		now:          opts.Now,
		mockInterval: opts.MockInterval,
		defaultBaud:  opts.DefaultBaudRate,
		maxLine:      opts.MaxLineBytes,
		mode:         ModeNone,
	}
	if m.metrics == nil {
		m.metrics = metrics.New()
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	m.logger = m.logger.With("component", "serialconn")
	if m.open == nil {
		m.open = OpenSerial
	}
	if m.list == nil {
		m.list = ListSerial
	}
	if m.newSim == nil {
		smoothing := opts.MockSmoothing
		m.newSim = func() *sim.Simulator { return sim.New(sim.WithSmoothing(smoothing)) }
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.mockInterval <= 0 {
		m.mockInterval = defaultMockInterval
	}
	if m.defaultBaud <= 0 {
		m.defaultBaud = defaultBaudRate
	}
	if m.maxLine <= 0 {
		m.maxLine = defaultMaxLineBytes
	}
	m.mockEnabled.Store(opts.MockEnabled)
	return m
}

// SetMockEnabled toggles the simulated source. A running simulated
// connection is left alone; the flag applies to listing and new connects.
func (m *Manager) SetMockEnabled(v bool) {
	if m.mockEnabled.Swap(v) != v {
		m.logger.Info("simulated source toggled", "enabled", v)
	}
}

// MockEnabled reports whether the simulated source is offered.
func (m *Manager) MockEnabled() bool {
	return m.mockEnabled.Load()
}

// ListAvailable returns the serial devices on the host plus the simulated
// entry when enabled. Enumeration failures are logged and yield only the
// simulated entry, so the dashboard stays usable on hosts without serial
// support.
func (m *Manager) ListAvailable() []types.PortInfo {
	details, err := m.list()
	if err != nil {
		m.logger.Warn("serial port enumeration failed", "err", err)
	}

	out := make([]types.PortInfo, 0, len(details)+1)
	for _, d := range details {
		if d == nil || d.Name == "" {
			continue
		}
		out = append(out, toPortInfo(d))
	}
	if m.mockEnabled.Load() {
		out = append(out, types.PortInfo{Path: MockPath, Manufacturer: mockManufacturer})
	}
	return out
}

// Connect replaces the current source with path and returns the state it
// established. A baudRate of zero or less selects the default. An empty path
// returns ErrPathRequired without touching the current connection; any other
// failure returns an *OpenError and leaves the manager disconnected.
func (m *Manager) Connect(path string, baudRate int) (Snapshot, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Snapshot{}, ErrPathRequired
	}
	if baudRate <= 0 {
		baudRate = m.defaultBaud
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.teardownLocked()

	if path == MockPath {
		if !m.mockEnabled.Load() {
			return m.snapshotLocked(), m.openFailedLocked(path, ErrMockDisabled)
		}
		m.startMockLocked(baudRate)
		return m.snapshotLocked(), nil
	}

	port, err := m.open(path, baudRate)
	if err != nil {
		return m.snapshotLocked(), m.openFailedLocked(path, err)
	}

	m.gen++
	m.mode = ModeSerial
	m.path = path
	m.baud = baudRate
	m.since = m.now()
	m.port = port
	m.connectedLocked(fmt.Sprintf("Connected to %s at %d baud", path, baudRate))

	go m.readLoop(m.gen, port, path)
	return m.snapshotLocked(), nil
}

// Disconnect closes the current source. It is a no-op when nothing is
// connected.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mode == ModeNone {
		return
	}
	path := m.path
	m.teardownLocked()
	m.logger.Info("disconnected", "port", path)
	m.out.Broadcast(types.NewStatus(false, "Disconnected"))
}

// Status returns the current connection state.
func (m *Manager) Status() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// StatusMessage renders the current state for a newly joined listener.
func (m *Manager) StatusMessage() types.StatusMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusMessageLocked()
}

// Join calls admit with the current status while holding the state lock, so
// no status broadcast can fall between reading the status and admitting the
// listener. admit must not call back into the Manager.
func (m *Manager) Join(admit func(types.StatusMessage)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	admit(m.statusMessageLocked())
}

// --- internal ---------------------------------------------------------------

func (m *Manager) snapshotLocked() Snapshot {
	return Snapshot{
		Connected: m.mode != ModeNone,
		Mode:      m.mode,
		Path:      m.path,
		BaudRate:  m.baud,
		Since:     m.since,
	}
}

func (m *Manager) statusMessageLocked() types.StatusMessage {
	switch m.mode {
	case ModeNone:
		return types.NewStatus(false, "Not connected")
	case ModeMock:
		return types.NewStatus(true, "Connected to simulated sensor")
	default:
		return types.NewStatus(true, fmt.Sprintf("Connected to %s at %d baud", m.path, m.baud))
	}
}

// teardownLocked releases the current handle and advances the generation so
// goroutines started for it stop delivering.
func (m *Manager) teardownLocked() {
	m.gen++
	if m.port != nil {
		if err := m.port.Close(); err != nil {
			m.logger.Debug("close serial port", "port", m.path, "err", err)
		}
		m.port = nil
	}
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.mode = ModeNone
	m.path = ""
	m.baud = 0
	m.since = time.Time{}
	m.metrics.SetConnected(false)
}

func (m *Manager) openFailedLocked(path string, err error) error {
	oerr := &OpenError{Path: path, Err: err}
	m.metrics.ConnectAttempt(metrics.ResultError)
	m.logger.Warn("open failed", "port", path, "err", err)
	m.out.Broadcast(types.NewStatus(false, oerr.Error()))
	return oerr
}

func (m *Manager) connectedLocked(msg string) {
	m.metrics.ConnectAttempt(metrics.ResultOK)
	m.metrics.SetConnected(true)
	m.logger.Info("connected", "port", m.path, "mode", m.mode, "baud_rate", m.baud)
	m.out.Broadcast(types.NewStatus(true, msg))
}

func (m *Manager) startMockLocked(baudRate int) {
	ctx, cancel := context.WithCancel(context.Background())
	m.gen++
	m.mode = ModeMock
	m.path = MockPath
	m.baud = baudRate
	m.since = m.now()
	m.cancel = cancel
	m.connectedLocked("Connected to simulated sensor")

	go m.mockLoop(ctx, m.gen, m.newSim())
}

// deliver publishes one line if gen is still the live connection.
func (m *Manager) deliver(gen uint64, source, line string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return
	}

	msg, parsed := ParseLine(line, m.now())
	m.metrics.LineReceived(parsed)
	if m.rec != nil {
		m.rec.Record(source, msg)
	}
	m.out.Broadcast(msg)
}

// readLoop drains port until it fails or is closed.
func (m *Manager) readLoop(gen uint64, port Port, path string) {
	sc := bufio.NewScanner(port)
	// The scanner's limit is the larger of max and cap(buf).
	sc.Buffer(make([]byte, 0, min(4096, m.maxLine)), m.maxLine)

	for sc.Scan() {
		line := CleanLine(sc.Text())
		if line == "" {
			continue
		}
		m.deliver(gen, path, line)
	}
	m.readEnded(gen, sc.Err())
}

// readEnded tears the connection down after an unexpected end of stream.
// Ends caused by Disconnect or a reconnect are ignored via gen.
func (m *Manager) readEnded(gen uint64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return
	}

	path := m.path
	m.teardownLocked()
	m.metrics.DeviceError()

	reason := "Serial port closed"
	switch {
	case errors.Is(err, bufio.ErrTooLong):
		reason = fmt.Sprintf("Serial error: line exceeds %d bytes", m.maxLine)
	case err != nil:
		reason = "Serial error: " + err.Error()
	}
	m.logger.Warn("serial connection lost", "port", path, "err", err)
	m.out.Broadcast(types.NewStatus(false, reason))
}

func (m *Manager) mockLoop(ctx context.Context, gen uint64, s *sim.Simulator) {
	t := time.NewTicker(m.mockInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			raw, err := json.Marshal(s.Next())
			if err != nil {
				m.logger.Error("encode simulated reading", "err", err)
				continue
			}
			m.deliver(gen, MockPath, string(raw))
		}
	}
}
