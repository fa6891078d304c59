package logging

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// ErrTooManyClients is returned when the broadcaster is at capacity.
var ErrTooManyClients = errors.New("maximum log stream connections reached")

// Entry is one log line as shipped to debug-panel clients.
type Entry struct {
	ID        uint64                 `json:"id,omitempty"`
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Broadcaster fans log entries out to connected WebSocket clients and keeps a
// bounded history so a freshly opened debug panel can backfill.
type Broadcaster struct {
	mu         sync.RWMutex
	clients    map[*websocket.Conn]struct{}
	broadcast  chan Entry
	stopCh     chan struct{}
	historyMu  sync.RWMutex
	history    []Entry
	historyCap int
	maxClients int
	seq        uint64
}

// NewBroadcaster creates a broadcaster and starts its fan-out loop.
func NewBroadcaster() *Broadcaster {
	b := &Broadcaster{
		clients:    make(map[*websocket.Conn]struct{}),
		broadcast:  make(chan Entry, 100),
		stopCh:     make(chan struct{}),
		history:    make([]Entry, 0, 500),
		historyCap: 500,
		maxClients: 20,
	}
	go b.run()
	return b
}

func (b *Broadcaster) run() {
	for {
		select {
		case entry := <-b.broadcast:
			b.mu.RLock()
			for conn := range b.clients {
				if err := conn.WriteJSON(entry); err != nil {
					log.Debugf("log stream write failed: %v", err)
					go b.RemoveClient(conn)
				}
			}
			b.mu.RUnlock()
		case <-b.stopCh:
			return
		}
	}
}

// Stop terminates the fan-out loop and closes all clients.
func (b *Broadcaster) Stop() {
	close(b.stopCh)
	b.mu.Lock()
	defer b.mu.Unlock()
	for conn := range b.clients {
		conn.Close()
	}
	b.clients = make(map[*websocket.Conn]struct{})
}

// AddClient registers a WebSocket connection for log delivery.
func (b *Broadcaster) AddClient(conn *websocket.Conn) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.clients) >= b.maxClients {
		return ErrTooManyClients
	}
	b.clients[conn] = struct{}{}
	log.Debugf("log stream client connected (total: %d)", len(b.clients))
	return nil
}

// RemoveClient unregisters and closes a connection.
func (b *Broadcaster) RemoveClient(conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[conn]; ok {
		delete(b.clients, conn)
		conn.Close()
	}
}

// ClientCount returns the number of connected clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Publish queues an entry for delivery; it never blocks. Entries are dropped
// when the channel is full.
func (b *Broadcaster) Publish(level, message string, fields map[string]interface{}) {
	entry := Entry{
		ID:        atomic.AddUint64(&b.seq, 1),
		Timestamp: time.Now().Format(time.RFC3339),
		Level:     level,
		Message:   message,
		Fields:    fields,
	}
	b.appendHistory(entry)
	select {
	case b.broadcast <- entry:
	default:
	}
}

func (b *Broadcaster) appendHistory(entry Entry) {
	b.historyMu.Lock()
	defer b.historyMu.Unlock()
	b.history = append(b.history, entry)
	if len(b.history) > b.historyCap {
		excess := len(b.history) - b.historyCap
		b.history = append([]Entry(nil), b.history[excess:]...)
	}
}

// History returns up to limit entries newer than the cursor ID.
func (b *Broadcaster) History(cursor uint64, limit int) []Entry {
	b.historyMu.RLock()
	defer b.historyMu.RUnlock()
	if limit <= 0 || limit > b.historyCap {
		limit = b.historyCap
	}
	total := len(b.history)
	start := total
	if cursor == 0 {
		start = total - limit
		if start < 0 {
			start = 0
		}
	} else {
		for i, e := range b.history {
			if e.ID > cursor {
				start = i
				break
			}
		}
	}
	if start >= total {
		return nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	out := make([]Entry, end-start)
	copy(out, b.history[start:end])
	return out
}

// Hook is a logrus hook forwarding every entry to the broadcaster.
type Hook struct {
	b *Broadcaster
}

// NewHook wraps a broadcaster as a logrus hook.
func NewHook(b *Broadcaster) *Hook { return &Hook{b: b} }

func (h *Hook) Levels() []log.Level { return log.AllLevels }

func (h *Hook) Fire(entry *log.Entry) error {
	fields := make(map[string]interface{}, len(entry.Data))
	for k, v := range entry.Data {
		fields[k] = v
	}
	h.b.Publish(entry.Level.String(), entry.Message, fields)
	return nil
}
