/*
Package notify implements the notification dispatcher collaborator.

PURPOSE:
  Best-effort, fire-and-forget delivery of status updates to employees.
  The engine swallows dispatch errors; nothing here may block or fail a
  transition. The Log dispatcher writes structured records in place of a
  real push gateway; Async decouples delivery from the caller entirely.
*/
package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/warp/custody-engine/approval"
)

// Log writes notifications to a structured log. Stands in for the push
// gateway in environments without one.
type Log struct {
	log *zap.Logger
}

func NewLog(log *zap.Logger) *Log {
	return &Log{log: log}
}

func (l *Log) Send(_ context.Context, userID, title, body string) error {
	l.log.Info("notification",
		zap.String("user_id", userID),
		zap.String("title", title),
		zap.String("body", body))
	return nil
}

// Async wraps a dispatcher and delivers in a goroutine, detached from the
// caller's context. Send always returns nil; delivery failures are logged.
type Async struct {
	next    approval.NotificationDispatcher
	log     *zap.Logger
	timeout time.Duration
}

func NewAsync(next approval.NotificationDispatcher, log *zap.Logger) *Async {
	return &Async{next: next, log: log, timeout: 10 * time.Second}
}

func (a *Async) Send(_ context.Context, userID, title, body string) error {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		if err := a.next.Send(ctx, userID, title, body); err != nil {
			a.log.Warn("async notification failed",
				zap.String("user_id", userID),
				zap.Error(err))
		}
	}()
	return nil
}

// Memory records notifications for assertions in tests.
type Memory struct {
	mu   sync.Mutex
	sent []Sent
}

// Sent is one recorded notification.
type Sent struct {
	UserID string
	Title  string
	Body   string
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Send(_ context.Context, userID, title, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, Sent{UserID: userID, Title: title, Body: body})
	return nil
}

// All returns a copy of everything sent so far.
func (m *Memory) All() []Sent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Sent, len(m.sent))
	copy(out, m.sent)
	return out
}
