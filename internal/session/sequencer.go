package session

import (
	"context"
	"sync"
)

// sequencer serves tickets strictly in the order they were taken.
// Abandoned tickets are skipped so a cancelled caller never stalls the queue.
type sequencer struct {
	mu        sync.Mutex
	next      uint64
	serving   uint64
	abandoned map[uint64]struct{}
	wake      chan struct{}
}

func (q *sequencer) take() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := q.next
	q.next++
	return n
}

func (q *sequencer) wait(ctx context.Context, n uint64) error {
	for {
		q.mu.Lock()
		if q.serving == n {
			q.mu.Unlock()
			return nil
		}
		if q.wake == nil {
			q.wake = make(chan struct{})
		}
		wake := q.wake
		q.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			q.release(n)
			return ctx.Err()
		}
	}
}

// release finishes ticket n if it is being served, otherwise marks it abandoned.
func (q *sequencer) release(n uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.serving != n {
		if n > q.serving {
			if q.abandoned == nil {
				q.abandoned = make(map[uint64]struct{})
			}
			q.abandoned[n] = struct{}{}
		}
		return
	}
	q.serving++
	for {
		if _, ok := q.abandoned[q.serving]; !ok {
			break
		}
		delete(q.abandoned, q.serving)
		q.serving++
	}
	if q.wake != nil {
		close(q.wake)
		q.wake = nil
	}
}

type ticketState int

const (
	ticketReserved ticketState = iota
	ticketHeld
	ticketReleased
)

// Ticket is a caller's place in a session's mutation order.
// A Ticket belongs to a single goroutine and is not safe for concurrent use.
type Ticket struct {
	session *Session
	n       uint64
	state   ticketState
}

// Wait blocks until every earlier ticket has been released or ctx is done.
// On error the ticket is released and must not be used for mutation.
func (t *Ticket) Wait(ctx context.Context) error {
	switch t.state {
	case ticketHeld:
		return nil
	case ticketReleased:
		return ErrTicketNotHeld
	}
	if err := t.session.seq.wait(ctx, t.n); err != nil {
		t.state = ticketReleased
		return err
	}
	t.state = ticketHeld
	return nil
}

// History returns the session's turns as seen by the ticket holder.
func (t *Ticket) History() ([]Turn, error) {
	if t.state != ticketHeld {
		return nil, ErrTicketNotHeld
	}
	return t.session.Turns(), nil
}

// Append adds a turn to the session. The ticket must be held.
func (t *Ticket) Append(role Role, text string) (Turn, error) {
	if t.state != ticketHeld {
		return Turn{}, ErrTicketNotHeld
	}
	return t.session.append(role, text)
}

// Release lets the next ticket proceed. It is safe to call more than once.
func (t *Ticket) Release() {
	if t.state == ticketReleased {
		return
	}
	t.state = ticketReleased
	t.session.seq.release(t.n)
}
