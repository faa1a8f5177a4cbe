package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// AuditEntry records one request to a privileged route.
type AuditEntry struct {
	Time       time.Time `json:"time"`
	User       string    `json:"user,omitempty"`
	Path       string    `json:"path"`
	Method     string    `json:"method"`
	Status     int       `json:"status"`
	RemoteAddr string    `json:"remote_addr,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
}

type auditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
	max     int
	sink    io.Writer
	clock   clockwork.Clock
}

func newAuditLog(size int, sink io.Writer, clock clockwork.Clock) *auditLog {
	if size <= 0 {
		size = 200
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &auditLog{max: size, sink: sink, clock: clock}
}

func (l *auditLog) record(r *http.Request, status int) {
	l.add(AuditEntry{
		Time:       l.clock.Now().UTC(),
		User:       r.Header.Get(UserHeader),
		Path:       r.URL.Path,
		Method:     r.Method,
		Status:     status,
		RemoteAddr: r.RemoteAddr,
		UserAgent:  r.UserAgent(),
	})
}

func (l *auditLog) add(entry AuditEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	if len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}
	if l.sink != nil {
		// Best-effort; a failing sink must not fail the request.
		if b, err := json.Marshal(entry); err == nil {
			_, _ = l.sink.Write(append(b, '\n'))
		}
	}
}

// listLimit returns the newest limit entries, oldest first.
func (l *auditLog) listLimit(limit int) []AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	if limit <= 0 || limit > l.max {
		limit = l.max
	}
	start := max(len(l.entries)-limit, 0)
	out := make([]AuditEntry, len(l.entries)-start)
	copy(out, l.entries[start:])
	return out
}
