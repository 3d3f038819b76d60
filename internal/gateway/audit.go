package gateway

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Entry is one recorded remote call.
type Entry struct {
	Seq       int            `json:"seq"`
	Timestamp time.Time      `json:"timestamp"`
	Step      string         `json:"step"`
	Method    string         `json:"method"`
	Endpoint  string         `json:"endpoint"`
	Status    int            `json:"status_code"`
	Payload   map[string]any `json:"request_payload,omitempty"`
	Success   bool           `json:"success"`
	Action    string         `json:"action"`
}

// Recorder is a Gateway decorator that captures every call for the
// deployment audit trail. It is safe for concurrent use.
type Recorder struct {
	next Gateway

	mu      sync.Mutex
	step    string
	entries []Entry
}

// NewRecorder wraps a Gateway with audit recording.
func NewRecorder(next Gateway) *Recorder {
	return &Recorder{next: next}
}

// SetStep labels all subsequent entries with the given deployment step.
func (r *Recorder) SetStep(step string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.step = step
}

// Entries returns a copy of the recorded calls.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

func (r *Recorder) record(method, endpoint string, status int, payload map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{
		Seq:       len(r.entries) + 1,
		Timestamp: time.Now().UTC(),
		Step:      r.step,
		Method:    method,
		Endpoint:  endpoint,
		Status:    status,
		Payload:   payload,
		Success:   status >= 200 && status < 300,
		Action:    classifyAction(method, endpoint),
	})
}

// Get implements Gateway.
func (r *Recorder) Get(ctx context.Context, endpoint string) (map[string]any, int, error) {
	body, status, err := r.next.Get(ctx, endpoint)
	r.record("GET", endpoint, status, nil)
	return body, status, err
}

// Post implements Gateway.
func (r *Recorder) Post(ctx context.Context, endpoint string, payload map[string]any) (map[string]any, int, error) {
	body, status, err := r.next.Post(ctx, endpoint, payload)
	r.record("POST", endpoint, status, payload)
	return body, status, err
}

// Patch implements Gateway.
func (r *Recorder) Patch(ctx context.Context, endpoint string, payload map[string]any) (map[string]any, int, error) {
	body, status, err := r.next.Patch(ctx, endpoint, payload)
	r.record("PATCH", endpoint, status, payload)
	return body, status, err
}

// classifyAction derives a human-readable action label from method and
// endpoint, for the audit trail.
func classifyAction(method, endpoint string) string {
	resource := endpoint
	if i := strings.Index(resource, "?"); i >= 0 {
		resource = resource[:i]
	}
	resource = strings.TrimRight(resource, "/")
	if i := strings.LastIndex(resource, "/"); i >= 0 {
		resource = resource[i+1:]
	}

	switch method {
	case "GET":
		if strings.Contains(endpoint, "?q=") {
			return "Lookup " + resource
		}
		return "Fetch " + resource
	case "POST":
		return "Create " + resource
	case "PATCH":
		return "Update " + resource
	default:
		return method + " " + resource
	}
}
