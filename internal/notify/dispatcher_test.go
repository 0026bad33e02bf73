package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/MrEthical07/authengine/domain"
)

type recordingSender struct {
	mu    sync.Mutex
	sent  []domain.EmailMessage
	err   error
	block chan struct{}
}

func (s *recordingSender) SendEmail(_ context.Context, msg domain.EmailMessage) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return s.err
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func TestCloseDrainsBuffer(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(Config{BufferSize: 16}, sender, nil)

	for i := 0; i < 10; i++ {
		d.Notify(context.Background(), domain.EmailMessage{To: "a@example.com", Kind: domain.EmailNewDevice})
	}
	d.Close()

	if got := sender.count(); got != 10 {
		t.Fatalf("expected 10 delivered, got %d", got)
	}
	d.Notify(context.Background(), domain.EmailMessage{})
	if got := sender.count(); got != 10 {
		t.Fatal("Notify after Close must be ignored")
	}
}

func TestDropIfFullCountsDrops(t *testing.T) {
	sender := &recordingSender{block: make(chan struct{})}
	d := NewDispatcher(Config{BufferSize: 1, DropIfFull: true}, sender, nil)

	for i := 0; i < 5; i++ {
		d.Notify(context.Background(), domain.EmailMessage{Kind: domain.EmailSuspiciousMFA})
	}
	close(sender.block)
	d.Close()

	if d.Dropped() == 0 {
		t.Fatal("expected drops with a full buffer")
	}
	if uint64(sender.count())+d.Dropped() != 5 {
		t.Fatalf("delivered %d + dropped %d != 5", sender.count(), d.Dropped())
	}
}

func TestSendFailuresAreCounted(t *testing.T) {
	sender := &recordingSender{err: errors.New("smtp down")}
	d := NewDispatcher(Config{BufferSize: 4}, sender, nil)

	d.Notify(context.Background(), domain.EmailMessage{Kind: domain.EmailAccountDisabled})
	d.Close()

	if d.Failed() != 1 {
		t.Fatalf("expected 1 failure, got %d", d.Failed())
	}
}

func TestNilDispatcherIsNoOp(t *testing.T) {
	var d *Dispatcher
	d.Notify(context.Background(), domain.EmailMessage{})
	d.Close()
	if d.Dropped() != 0 || d.Failed() != 0 {
		t.Fatal("nil dispatcher must report zero")
	}
	if NewDispatcher(Config{}, nil, nil) != nil {
		t.Fatal("expected nil dispatcher without sender")
	}
}
