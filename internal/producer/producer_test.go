package producer

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rinhapay/payment-router/internal/payments"
	pkgerrors "github.com/rinhapay/payment-router/pkg/errors"
	"github.com/rinhapay/payment-router/pkg/logger"
)

type recordingSink struct {
	mu      sync.Mutex
	batches [][]string
	failN   int
}

func (s *recordingSink) AppendBatch(ctx context.Context, reqs []payments.PaymentRequest) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failN > 0 {
		s.failN--
		return nil, errors.New("redis unavailable")
	}
	ids := make([]string, 0, len(reqs))
	for _, req := range reqs {
		ids = append(ids, req.CorrelationID)
	}
	s.batches = append(s.batches, ids)
	return ids, nil
}

func (s *recordingSink) appended() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, b := range s.batches {
		out = append(out, b...)
	}
	return out
}

func newTestProducer(t *testing.T, sink Sink, buffer, batch int, interval time.Duration) *Producer {
	t.Helper()
	p, err := New(Params{
		Sink:          sink,
		Logger:        logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		BufferSize:    buffer,
		BatchSize:     batch,
		FlushInterval: interval,
	})
	if err != nil {
		t.Fatalf("new producer: %v", err)
	}
	return p
}

func payment(id string) payments.PaymentRequest {
	return payments.PaymentRequest{CorrelationID: id, Amount: decimal.NewFromInt(1), RequestedAt: time.Now().UTC()}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestEnqueueRejectsWhenBufferFull(t *testing.T) {
	p := newTestProducer(t, &recordingSink{}, 2, 2, time.Hour)

	if err := p.Enqueue(context.Background(), payment("a")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.Enqueue(context.Background(), payment("b")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := p.Enqueue(context.Background(), payment("c"))
	if err == nil {
		t.Fatal("expected full buffer to reject")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnavailable {
		t.Fatalf("expected unavailable error, got %v", err)
	}
	if p.Buffered() != 2 {
		t.Fatalf("expected 2 buffered, got %d", p.Buffered())
	}
}

func TestRunFlushesOnBatchSizeInOrder(t *testing.T) {
	sink := &recordingSink{}
	p := newTestProducer(t, sink, 100, 3, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = p.Run(ctx)
		close(done)
	}()

	for _, id := range []string{"a", "b", "c"} {
		if err := p.Enqueue(ctx, payment(id)); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	waitFor(t, func() bool { return len(sink.appended()) == 3 })

	got := sink.appended()
	if got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("expected order to be preserved, got %v", got)
	}
	cancel()
	<-done
}

func TestRunFlushesOnTimer(t *testing.T) {
	sink := &recordingSink{}
	p := newTestProducer(t, sink, 100, 50, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = p.Run(ctx) }()

	if err := p.Enqueue(ctx, payment("solo")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	waitFor(t, func() bool { return len(sink.appended()) == 1 })
}

func TestRunRetriesFailedBatch(t *testing.T) {
	sink := &recordingSink{failN: 2}
	p := newTestProducer(t, sink, 100, 1, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = p.Run(ctx) }()

	if err := p.Enqueue(ctx, payment("retry-me")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	waitFor(t, func() bool { return len(sink.appended()) == 1 })
}

func TestRunDrainsBufferOnShutdown(t *testing.T) {
	sink := &recordingSink{}
	p := newTestProducer(t, sink, 100, 4, time.Hour)

	for i := 0; i < 10; i++ {
		if err := p.Enqueue(context.Background(), payment(string(rune('a'+i)))); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := len(sink.appended()); got != 10 {
		t.Fatalf("expected all 10 payments flushed on shutdown, got %d", got)
	}
	if p.Buffered() != 0 {
		t.Fatalf("expected empty buffer, got %d", p.Buffered())
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	if _, err := New(Params{Logger: logger.New(logger.Options{Output: io.Discard})}); err == nil {
		t.Fatal("expected missing sink to fail")
	}
	if _, err := New(Params{Sink: &recordingSink{}}); err == nil {
		t.Fatal("expected missing logger to fail")
	}
}
