package announce

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Channel routes audio on the backend.
type Channel string

const (
	// ChannelPersonal is the user's own voice: things they chose to say.
	ChannelPersonal Channel = "personal"

	// ChannelSystem is for interface feedback ("Scanning paused.").
	ChannelSystem Channel = "system"
)

// Request is one queued announcement.
type Request struct {
	ID            uuid.UUID
	Text          string
	Channel       Channel
	RecordHistory bool
	EnqueuedAt    time.Time
}

// Ticket tracks a queued request until it has finished playing.
type Ticket struct {
	Request Request

	done chan struct{}
	once sync.Once
	err  error
}

func newTicket(req Request) *Ticket {
	return &Ticket{Request: req, done: make(chan struct{})}
}

// Done is closed once the request finished playing or failed.
func (t *Ticket) Done() <-chan struct{} {
	return t.done
}

// Err returns the synthesis or playback error. It is only meaningful
// after Done is closed.
func (t *Ticket) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Wait blocks until the request has finished playing or ctx is done.
// Cancelling ctx does not remove the request from the queue.
func (t *Ticket) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Ticket) resolve(err error) {
	t.once.Do(func() {
		t.err = err
		close(t.done)
	})
}
