package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is how long a toast stays visible before it is evicted.
const DefaultTTL = 3 * time.Second

// Severity classifies a toast for rendering.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityInfo    Severity = "info"
)

// Toast is a transient user-facing message.
type Toast struct {
	ID       string
	Severity Severity
	Message  string
}

// Center is the process-wide notification registry. It is constructed once
// at application start and injected into every component that reports
// outcomes; it is never a package global.
//
// Each pushed toast gets its own eviction timer; there is no coalescing of
// duplicate messages and no cap on the number of visible toasts.
type Center struct {
	mu     sync.Mutex
	toasts []Toast
	ttl    time.Duration
}

// NewCenter creates a Center with the default 3 second eviction delay.
func NewCenter() *Center {
	return NewCenterTTL(DefaultTTL)
}

// NewCenterTTL creates a Center with a custom eviction delay.
func NewCenterTTL(ttl time.Duration) *Center {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Center{ttl: ttl}
}

// Push appends a toast and schedules its removal after the eviction delay.
// It cannot fail; the returned id identifies the toast until it is evicted.
func (c *Center) Push(severity Severity, message string) string {
	id := uuid.NewString()

	c.mu.Lock()
	c.toasts = append(c.toasts, Toast{ID: id, Severity: severity, Message: message})
	c.mu.Unlock()

	time.AfterFunc(c.ttl, func() { c.evict(id) })

	return id
}

// Success pushes a success toast.
func (c *Center) Success(message string) { c.Push(SeveritySuccess, message) }

// Error pushes an error toast.
func (c *Center) Error(message string) { c.Push(SeverityError, message) }

// Info pushes an info toast.
func (c *Center) Info(message string) { c.Push(SeverityInfo, message) }

// Active returns a copy of the currently visible toasts in insertion order.
// The copy is for rendering only; mutating it has no effect on the Center.
func (c *Center) Active() []Toast {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Toast, len(c.toasts))
	copy(out, c.toasts)
	return out
}

func (c *Center) evict(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.toasts[:0]
	for _, t := range c.toasts {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	c.toasts = kept
}
