// Package notify carries task completion events to the assistant conversation.
// Delivery is best effort: a failed notification never undoes a completion.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrInboxFull is returned when the inbox consumer is not keeping up.
var ErrInboxFull = errors.New("notification inbox full")

// CompletionEvent describes a task that was just marked complete.
type CompletionEvent struct {
	TaskID      string    `json:"task_id"`
	MilestoneID string    `json:"milestone_id"`
	Title       string    `json:"title"`
	CompletedAt time.Time `json:"completed_at"`
}

// Message renders the event as text for the conversation.
func (e CompletionEvent) Message() string {
	return fmt.Sprintf("Task %q was completed at %s.", e.Title, e.CompletedAt.Format(time.RFC1123))
}

// Notifier receives completion events.
type Notifier interface {
	TaskCompleted(ctx context.Context, event CompletionEvent) error
}

// LogNotifier writes completion events to the application log.
type LogNotifier struct{}

// TaskCompleted implements Notifier.
func (LogNotifier) TaskCompleted(_ context.Context, event CompletionEvent) error {
	log.Info().
		Str("task_id", event.TaskID).
		Str("milestone_id", event.MilestoneID).
		Time("completed_at", event.CompletedAt).
		Msg(event.Message())
	return nil
}

// Inbox buffers events for a consumer such as the assistant conversation.
// Sends never block; when the buffer is full the event is dropped.
type Inbox struct {
	events chan CompletionEvent
}

// NewInbox creates an inbox holding up to size pending events.
func NewInbox(size int) *Inbox {
	if size < 1 {
		size = 1
	}
	return &Inbox{events: make(chan CompletionEvent, size)}
}

// TaskCompleted implements Notifier.
func (i *Inbox) TaskCompleted(ctx context.Context, event CompletionEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case i.events <- event:
		return nil
	default:
		return ErrInboxFull
	}
}

// Events returns the receive side of the inbox.
func (i *Inbox) Events() <-chan CompletionEvent {
	return i.events
}

// Drain returns every pending event without blocking.
func (i *Inbox) Drain() []CompletionEvent {
	var out []CompletionEvent
	for {
		select {
		case ev := <-i.events:
			out = append(out, ev)
		default:
			return out
		}
	}
}

// Multi fans an event out to several notifiers. Every notifier is called even
// when an earlier one fails; failures are joined.
type Multi []Notifier

// TaskCompleted implements Notifier.
func (m Multi) TaskCompleted(ctx context.Context, event CompletionEvent) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.TaskCompleted(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
