// Package notifytest provides a Notifier that records calls for assertions.
package notifytest

import (
	"context"
	"sync"

	"github.com/angelmondragon/tradedesk-backend/internal/notifications"
	"github.com/google/uuid"
)

// Call is one recorded notifier invocation.
type Call struct {
	Kind   string
	UserID uuid.UUID
	Email  string
	Notice notifications.Notice
}

const (
	KindAdmin     = "admin"
	KindUser      = "user"
	KindEmailOnly = "email"
)

// Recorder implements notifications.Notifier in memory.
type Recorder struct {
	mu    sync.Mutex
	calls []Call
}

func (r *Recorder) NotifyAdmin(ctx context.Context, notice notifications.Notice) {
	r.record(Call{Kind: KindAdmin, Notice: notice})
}

func (r *Recorder) NotifyUser(ctx context.Context, userID uuid.UUID, email string, notice notifications.Notice) {
	r.record(Call{Kind: KindUser, UserID: userID, Email: email, Notice: notice})
}

func (r *Recorder) NotifyEmailOnly(ctx context.Context, email, title, content string) {
	r.record(Call{Kind: KindEmailOnly, Email: email, Notice: notifications.Notice{Title: title, Content: content}})
}

func (r *Recorder) record(c Call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
}

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// Reset drops recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}
