package producer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rinhapay/payment-router/internal/payments"
	pkgerrors "github.com/rinhapay/payment-router/pkg/errors"
	"github.com/rinhapay/payment-router/pkg/logger"
)

const (
	defaultBufferSize    = 10000
	defaultBatchSize     = 100
	defaultFlushInterval = 20 * time.Millisecond
	shutdownFlushTimeout = 5 * time.Second
)

// Sink appends a batch of payments to the stream in order.
type Sink interface {
	AppendBatch(ctx context.Context, reqs []payments.PaymentRequest) ([]string, error)
}

// Params wires the producer.
type Params struct {
	Sink          Sink
	Logger        *logger.Logger
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
}

// Producer buffers accepted payments in memory and appends them to the stream
// in batches, on size or on a timer. A full buffer rejects new payments.
type Producer struct {
	sink          Sink
	logg          *logger.Logger
	buffer        chan payments.PaymentRequest
	batchSize     int
	flushInterval time.Duration
}

func New(params Params) (*Producer, error) {
	if params.Sink == nil {
		return nil, errors.New("producer sink is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	bufferSize := params.BufferSize
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if batchSize > bufferSize {
		batchSize = bufferSize
	}
	interval := params.FlushInterval
	if interval <= 0 {
		interval = defaultFlushInterval
	}
	return &Producer{
		sink:          params.Sink,
		logg:          params.Logger,
		buffer:        make(chan payments.PaymentRequest, bufferSize),
		batchSize:     batchSize,
		flushInterval: interval,
	}, nil
}

// Enqueue buffers the payment without blocking.
func (p *Producer) Enqueue(ctx context.Context, req payments.PaymentRequest) error {
	select {
	case p.buffer <- req:
		return nil
	default:
		return pkgerrors.New(pkgerrors.CodeUnavailable, "payment buffer full")
	}
}

// Buffered returns the number of payments waiting to be collected.
func (p *Producer) Buffered() int {
	return len(p.buffer)
}

// Run collects and flushes batches until ctx is canceled, then drains the
// buffer with a bounded timeout. A failed batch is retried on the next timer
// tick; while it is held no new payments are collected.
func (p *Producer) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	batch := make([]payments.PaymentRequest, 0, p.batchSize)
	for {
		in := p.buffer
		if len(batch) >= p.batchSize {
			in = nil
		}

		select {
		case <-ctx.Done():
			p.shutdown(ctx, batch)
			return nil
		case req := <-in:
			batch = append(batch, req)
			if len(batch) >= p.batchSize {
				batch = p.flush(ctx, batch)
			}
		case <-ticker.C:
			batch = p.flush(ctx, batch)
		}
	}
}

func (p *Producer) flush(ctx context.Context, batch []payments.PaymentRequest) []payments.PaymentRequest {
	if len(batch) == 0 {
		return batch
	}
	if _, err := p.sink.AppendBatch(ctx, batch); err != nil {
		p.logg.Error(ctx, fmt.Sprintf("appending %d payments to stream failed", len(batch)), err)
		return batch
	}
	return batch[:0]
}

func (p *Producer) shutdown(parent context.Context, batch []payments.PaymentRequest) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), shutdownFlushTimeout)
	defer cancel()

	for {
		select {
		case req := <-p.buffer:
			batch = append(batch, req)
			if len(batch) < p.batchSize {
				continue
			}
		default:
		}
		if len(batch) == 0 {
			return
		}
		if _, err := p.sink.AppendBatch(ctx, batch); err != nil {
			p.logg.Error(ctx, fmt.Sprintf("dropping %d buffered payments on shutdown", len(batch)+len(p.buffer)), err)
			return
		}
		batch = batch[:0]
	}
}
