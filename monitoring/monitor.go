// Package monitoring turns a simulation run into a server that can be
// watched while it executes: a small JSON API, and a websocket stream of the
// hops taken by packets.
package monitoring

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/iti/pcktsim"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"
	"golang.org/x/time/rate"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StreamMessage is what a websocket client receives
type StreamMessage struct {
	Type string             `json:"type"`
	Now  int64              `json:"now"`
	Hop  *pcktsim.HopRecord `json:"hop,omitempty"`
	Drop *DropMessage       `json:"drop,omitempty"`
}

// DropMessage describes a lost packet
type DropMessage struct {
	Node   int64  `json:"node"`
	Reason string `json:"reason"`
}

// Snapshot is the state of the run as last seen by the monitor
type Snapshot struct {
	Now       int64             `json:"now"`
	Executed  uint64            `json:"executed"`
	Hops      uint64            `json:"hops"`
	Delivered uint64            `json:"delivered"`
	Dropped   map[string]uint64 `json:"dropped"`
	Changes   []string          `json:"changes"`
}

// streamClient is one websocket connection.  Messages beyond the client's
// rate are not sent.
type streamClient struct {
	conn    *websocket.Conn
	limiter *rate.Limiter
	send    chan StreamMessage
}

// Monitor is a hook that keeps a snapshot of the run it observes and serves it
type Monitor struct {
	addr     string
	interval time.Duration

	mu       sync.Mutex
	snapshot Snapshot
	clients  map[*streamClient]bool

	listener net.Listener
	server   *http.Server
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		addr:     "localhost:0",
		interval: 10 * time.Millisecond,
		snapshot: Snapshot{Dropped: make(map[string]uint64)},
		clients:  make(map[*streamClient]bool),
	}
}

// WithAddr sets the address the server listens on
func (m *Monitor) WithAddr(addr string) *Monitor {
	m.addr = addr
	return m
}

// WithStreamInterval sets the minimum wall-clock time between two messages
// sent to a websocket client; zero sends every message
func (m *Monitor) WithStreamInterval(d time.Duration) *Monitor {
	m.interval = d
	return m
}

// Func updates the snapshot and feeds the stream
func (m *Monitor) Func(ctx pcktsim.HookCtx) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.snapshot.Now = ctx.Now.Micros()
	var msg *StreamMessage
	switch ctx.Pos {
	case pcktsim.HookPosAfterEvent:
		m.snapshot.Executed++
	case pcktsim.HookPosHop:
		m.snapshot.Hops++
		if hop, ok := ctx.Detail.(pcktsim.HopRecord); ok {
			msg = &StreamMessage{Type: "hop", Now: m.snapshot.Now, Hop: &hop}
		}
	case pcktsim.HookPosDelivered:
		m.snapshot.Delivered++
	case pcktsim.HookPosDrop:
		if drop, ok := ctx.Detail.(pcktsim.Drop); ok {
			m.snapshot.Dropped[drop.Reason.String()]++
			msg = &StreamMessage{Type: "drop", Now: m.snapshot.Now,
				Drop: &DropMessage{Node: drop.Node, Reason: drop.Reason.String()}}
		}
	case pcktsim.HookPosTopologyChange:
		m.snapshot.Changes = append(m.snapshot.Changes, fmt.Sprintf("%v at %v", ctx.Item, ctx.Now))
	}
	if msg != nil {
		m.broadcast(*msg)
	}
}

// broadcast must be called with the lock held
func (m *Monitor) broadcast(msg StreamMessage) {
	for c := range m.clients {
		if !c.limiter.Allow() {
			continue
		}
		select {
		case c.send <- msg:
		default:
		}
	}
}

// Snapshot returns a copy of the current snapshot
func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.snapshot
	s.Dropped = make(map[string]uint64, len(m.snapshot.Dropped))
	for reason, n := range m.snapshot.Dropped {
		s.Dropped[reason] = n
	}
	s.Changes = append([]string{}, m.snapshot.Changes...)
	return s
}

// NumClients returns the number of connected websocket clients
func (m *Monitor) NumClients() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clients)
}

// Router returns the routes served by the monitor
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/stats", m.stats)
	r.HandleFunc("/api/drops/{reason}", m.drops)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/stream", m.stream)
	return r
}

// StartServer starts serving in the background and returns the URL of the server
func (m *Monitor) StartServer() (string, error) {
	listener, err := net.Listen("tcp", m.addr)
	if err != nil {
		return "", err
	}
	m.listener = listener
	m.server = &http.Server{Handler: m.Router()}

	url := fmt.Sprintf("http://localhost:%d", listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	go func() {
		if err := m.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("monitor: %v", err)
		}
	}()
	return url, nil
}

// OpenBrowser shows url in the user's browser
func (m *Monitor) OpenBrowser(url string) error {
	return browser.OpenURL(url)
}

// Close stops the server and disconnects the stream clients
func (m *Monitor) Close() error {
	m.mu.Lock()
	for c := range m.clients {
		close(c.send)
		delete(m.clients, c)
	}
	m.mu.Unlock()

	if m.server == nil {
		return nil
	}
	return m.server.Close()
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	s := m.Snapshot()
	fmt.Fprintf(w, "{\"now\":%d}", s.Now)
}

func (m *Monitor) stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, m.Snapshot())
}

func (m *Monitor) drops(w http.ResponseWriter, r *http.Request) {
	reason := mux.Vars(r)["reason"]
	s := m.Snapshot()
	if reason == "all" {
		reasons := make([]string, 0, len(s.Dropped))
		for name := range s.Dropped {
			reasons = append(reasons, name)
		}
		sort.Strings(reasons)
		writeJSON(w, reasons)
		return
	}
	writeJSON(w, map[string]uint64{reason: s.Dropped[reason]})
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	memory, err := proc.MemoryInfo()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, resourceRsp{CPUPercent: cpuPercent, MemorySize: memory.RSS})
}

func (m *Monitor) stream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("monitor: upgrading connection: %v", err)
		return
	}

	limit := rate.Inf
	if m.interval > 0 {
		limit = rate.Every(m.interval)
	}
	c := &streamClient{conn: conn, limiter: rate.NewLimiter(limit, 1), send: make(chan StreamMessage, 256)}
	m.mu.Lock()
	m.clients[c] = true
	m.mu.Unlock()

	go m.readLoop(c)
	for msg := range c.send {
		if err := conn.WriteJSON(msg); err != nil {
			break
		}
	}
	conn.Close()
}

// readLoop discards what the client sends and unregisters it once it goes away
func (m *Monitor) readLoop(c *streamClient) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
	m.mu.Lock()
	if m.clients[c] {
		close(c.send)
		delete(m.clients, c)
	}
	m.mu.Unlock()
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(bytes)
}
