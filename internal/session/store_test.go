package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestStoreGetOrCreateIsIdempotent(t *testing.T) {
	m := NewStore()
	var created int
	var mu sync.Mutex
	m.SetCreateHook(func(*Session) {
		mu.Lock()
		created++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	got := make([]*Session, 32)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = m.GetOrCreate("same-id")
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(got); i++ {
		if got[i] != got[0] {
			t.Fatalf("GetOrCreate() returned different sessions for the same id")
		}
	}
	if created != 1 {
		t.Fatalf("create hook calls = %d, want 1", created)
	}
	if m.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", m.Count())
	}
}

func TestStoreLookupDoesNotCreate(t *testing.T) {
	m := NewStore()
	if _, ok := m.Lookup("missing"); ok {
		t.Fatalf("Lookup() found a session that was never created")
	}
	if m.Count() != 0 {
		t.Fatalf("Count() = %d, want 0", m.Count())
	}
}

func TestTicketAppendRequiresHeldTicket(t *testing.T) {
	s := NewStore().GetOrCreate("s1")
	ticket := s.Reserve()
	if _, err := ticket.Append(RoleUser, "hi"); !errors.Is(err, ErrTicketNotHeld) {
		t.Fatalf("Append() before Wait error = %v, want ErrTicketNotHeld", err)
	}
	if err := ticket.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if _, err := ticket.Append(RoleUser, ""); !errors.Is(err, ErrEmptyTurn) {
		t.Fatalf("Append(empty) error = %v, want ErrEmptyTurn", err)
	}
	if _, err := ticket.Append("system", "x"); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("Append(system) error = %v, want ErrInvalidRole", err)
	}
	if _, err := ticket.Append(RoleUser, "hi"); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	ticket.Release()
	if _, err := ticket.Append(RoleAssistant, "late"); !errors.Is(err, ErrTicketNotHeld) {
		t.Fatalf("Append() after Release error = %v, want ErrTicketNotHeld", err)
	}
	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}
}

func TestTicketsServeInArrivalOrder(t *testing.T) {
	s := NewStore().GetOrCreate("ordered")
	const n = 50

	tickets := make([]*Ticket, n)
	for i := range tickets {
		tickets[i] = s.Reserve()
	}

	// Start waiters in reverse so scheduling order cannot explain the result.
	var wg sync.WaitGroup
	for i := n - 1; i >= 0; i-- {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tk := tickets[i]
			defer tk.Release()
			if err := tk.Wait(context.Background()); err != nil {
				t.Errorf("Wait(%d) error = %v", i, err)
				return
			}
			if _, err := tk.Append(RoleUser, fmt.Sprintf("u%d", i)); err != nil {
				t.Errorf("Append(%d) error = %v", i, err)
				return
			}
			if _, err := tk.Append(RoleAssistant, fmt.Sprintf("a%d", i)); err != nil {
				t.Errorf("Append(%d) error = %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	turns := s.Turns()
	if len(turns) != 2*n {
		t.Fatalf("len(turns) = %d, want %d", len(turns), 2*n)
	}
	for i := 0; i < n; i++ {
		u, a := turns[2*i], turns[2*i+1]
		if u.Role != RoleUser || u.Text != fmt.Sprintf("u%d", i) {
			t.Fatalf("turn %d = %+v, want user u%d", 2*i, u, i)
		}
		if a.Role != RoleAssistant || a.Text != fmt.Sprintf("a%d", i) {
			t.Fatalf("turn %d = %+v, want assistant a%d", 2*i+1, a, i)
		}
	}
}

func TestUnusedTicketReleaseDoesNotBlockLaterTickets(t *testing.T) {
	s := NewStore().GetOrCreate("skip")
	first := s.Reserve()
	second := s.Reserve()

	// The first caller bails out (e.g. empty speech) without ever waiting.
	first.Release()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := second.Wait(ctx); err != nil {
		t.Fatalf("second.Wait() error = %v", err)
	}
	second.Release()
}

func TestCancelledWaiterIsSkipped(t *testing.T) {
	s := NewStore().GetOrCreate("cancel")
	holder := s.Reserve()
	if err := holder.Wait(context.Background()); err != nil {
		t.Fatalf("holder.Wait() error = %v", err)
	}

	cancelled := s.Reserve()
	after := s.Reserve()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- cancelled.Wait(ctx) }()
	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled.Wait() error = %v, want context.Canceled", err)
	}
	if _, err := cancelled.Append(RoleUser, "x"); !errors.Is(err, ErrTicketNotHeld) {
		t.Fatalf("Append() on cancelled ticket error = %v, want ErrTicketNotHeld", err)
	}

	holder.Release()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), time.Second)
	defer waitCancel()
	if err := after.Wait(waitCtx); err != nil {
		t.Fatalf("after.Wait() error = %v", err)
	}
	after.Release()
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewStore().GetOrCreate("copy")
	tk := s.Reserve()
	if err := tk.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if _, err := tk.Append(RoleUser, "hello"); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	tk.Release()

	snap := s.Snapshot()
	snap.Turns[0].Text = "mutated"
	if got := s.Turns()[0].Text; got != "hello" {
		t.Fatalf("stored turn text = %q, want %q", got, "hello")
	}
	if snap.ID != "copy" {
		t.Fatalf("snapshot ID = %q, want %q", snap.ID, "copy")
	}
}
