package consumer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/rinhapay/payment-router/internal/payments"
	"github.com/rinhapay/payment-router/internal/queue"
	"github.com/rinhapay/payment-router/pkg/config"
	"github.com/rinhapay/payment-router/pkg/enums"
	"github.com/rinhapay/payment-router/pkg/logger"
	"github.com/rinhapay/payment-router/pkg/metrics"
)

const ackTimeout = 2 * time.Second

// Queue is the stream surface the consumer loop needs.
type Queue interface {
	EnsureGroup(ctx context.Context) error
	ReadBatch(ctx context.Context, consumer string, count int64, block time.Duration) ([]queue.Entry, error)
	Reclaim(ctx context.Context, consumer string, minIdle time.Duration, count int64) ([]queue.Entry, error)
	Acknowledge(ctx context.Context, ids []string) (int64, error)
	Pending(ctx context.Context) (int64, error)
}

// Router chooses a processor and submits the payment to it.
type Router interface {
	Route(ctx context.Context, req *payments.PaymentRequest) (enums.PaymentStrategy, error)
}

// Recorder persists processed payments idempotently.
type Recorder interface {
	Insert(ctx context.Context, req payments.PaymentRequest) (payments.InsertResult, error)
}

// ServiceParams wires the consumer loop.
type ServiceParams struct {
	Config     config.ConsumerConfig
	Logger     *logger.Logger
	Queue      Queue
	Router     Router
	Recorder   Recorder
	Metrics    *metrics.ConsumerMetrics
	InstanceID string
}

// Service runs one serialized tick loop per named consumer. All consumers
// share one in-flight window.
type Service struct {
	cfg       config.ConsumerConfig
	logg      *logger.Logger
	queue     Queue
	router    Router
	recorder  Recorder
	metrics   *metrics.ConsumerMetrics
	consumers []string
	window    *semaphore.Weighted
}

// TickResult summarizes one tick of one consumer.
type TickResult struct {
	Read      int
	Markers   int
	Processed int
	Failed    int
	Poison    int
	Acked     int64
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Queue == nil {
		return nil, errors.New("stream queue is required")
	}
	if params.Router == nil {
		return nil, errors.New("router is required")
	}
	if params.Recorder == nil {
		return nil, errors.New("payments recorder is required")
	}
	cfg := params.Config
	if cfg.Count < 1 || cfg.BatchSize < 1 || cfg.Concurrency < 1 {
		return nil, errors.New("consumer count, batch size and concurrency must be positive")
	}
	if cfg.TickInterval <= 0 {
		return nil, errors.New("consumer tick interval must be positive")
	}

	return &Service{
		cfg:       cfg,
		logg:      params.Logger,
		queue:     params.Queue,
		router:    params.Router,
		recorder:  params.Recorder,
		metrics:   params.Metrics,
		consumers: ConsumerNames(params.InstanceID, cfg.NamePrefix, cfg.Count),
		window:    semaphore.NewWeighted(int64(cfg.Concurrency)),
	}, nil
}

// ConsumerNames builds "<instance>:<prefix>-N" for N in 1..count.
func ConsumerNames(instanceID, prefix string, count int) []string {
	if prefix == "" {
		prefix = "processor"
	}
	names := make([]string, 0, count)
	for i := 1; i <= count; i++ {
		name := fmt.Sprintf("%s-%d", prefix, i)
		if instanceID != "" {
			name = instanceID + ":" + name
		}
		names = append(names, name)
	}
	return names
}

// Consumers returns the consumer names this service drives.
func (s *Service) Consumers() []string {
	out := make([]string, len(s.consumers))
	copy(out, s.consumers)
	return out
}

// Run drives every consumer until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	s.logg.Info(ctx, fmt.Sprintf("starting %d stream consumers", len(s.consumers)))

	var g errgroup.Group
	for _, name := range s.consumers {
		g.Go(func() error {
			s.runConsumer(ctx, name)
			return nil
		})
	}
	_ = g.Wait()

	s.logg.Info(ctx, "stream consumers stopped")
	return ctx.Err()
}

func (s *Service) runConsumer(ctx context.Context, name string) {
	ctx = s.logg.WithConsumer(ctx, name)
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Tick(ctx, name); err != nil && ctx.Err() == nil {
				s.logg.Error(ctx, "consumer tick aborted", err)
			}
		}
	}
}

// Tick runs one read-process-acknowledge cycle for consumer. Entry failures
// never fail the tick; only infrastructure errors before processing do.
func (s *Service) Tick(ctx context.Context, consumer string) (TickResult, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveTick(consumer, time.Since(start)) }()

	var result TickResult
	if err := s.queue.EnsureGroup(ctx); err != nil {
		return result, err
	}

	var entries []queue.Entry
	if s.cfg.ReclaimEnabled() {
		claimed, err := s.queue.Reclaim(ctx, consumer, s.cfg.ReclaimIdle, int64(s.cfg.BatchSize))
		if err != nil {
			s.logg.Warn(ctx, fmt.Sprintf("reclaiming idle entries failed: %v", err))
		}
		entries = append(entries, claimed...)
	}

	fresh, err := s.queue.ReadBatch(ctx, consumer, int64(s.cfg.BatchSize), s.cfg.BlockTimeout)
	if err != nil {
		if len(entries) == 0 {
			return result, err
		}
		s.logg.Warn(ctx, fmt.Sprintf("reading new entries failed, processing %d reclaimed: %v", len(entries), err))
	}
	entries = append(entries, fresh...)
	result.Read = len(entries)
	if len(entries) == 0 {
		return result, nil
	}

	markers, business := queue.Partition(entries)
	result.Markers = len(markers)
	if len(markers) > 0 {
		for range markers {
			s.metrics.IncEntry(metrics.OutcomeMarker)
		}
		result.Acked += s.acknowledge(ctx, consumer, queue.IDs(markers))
	}

	done := s.processAll(ctx, business, &result)
	result.Acked += s.acknowledge(ctx, consumer, done)

	if result.Acked > 0 {
		s.logg.Info(ctx, fmt.Sprintf("acknowledged %d entries (%d read, %d failed)", result.Acked, result.Read, result.Failed))
	}
	s.observePending(ctx)
	return result, nil
}

// observePending runs on ticks that read something; an idle group keeps its last value.
func (s *Service) observePending(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	n, err := s.queue.Pending(context.WithoutCancel(ctx))
	if err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("reading pending count failed: %v", err))
		return
	}
	s.metrics.SetPending(n)
}

func (s *Service) processAll(ctx context.Context, entries []queue.Entry, result *TickResult) []string {
	var (
		mu   sync.Mutex
		done []string
		g    errgroup.Group
	)
	for _, entry := range entries {
		if err := s.window.Acquire(ctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer s.window.Release(1)
			outcome := s.processEntry(ctx, entry)

			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case metrics.OutcomeProcessed, metrics.OutcomeDuplicate:
				result.Processed++
				done = append(done, entry.ID)
			case metrics.OutcomePoison:
				result.Poison++
				done = append(done, entry.ID)
			default:
				result.Failed++
			}
			return nil
		})
	}
	_ = g.Wait()
	return done
}

// processEntry returns the metrics outcome for one business entry.
func (s *Service) processEntry(ctx context.Context, entry queue.Entry) string {
	req, err := queue.Decode(entry)
	if err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("acknowledging undecodable entry: %v", err))
		s.metrics.IncEntry(metrics.OutcomePoison)
		return metrics.OutcomePoison
	}
	ctx = s.logg.WithCorrelationID(ctx, req.CorrelationID)

	strategy, err := s.router.Route(ctx, &req)
	if err != nil {
		s.logg.Error(ctx, "payment left pending after processor failure", err)
		s.metrics.IncEntry(metrics.OutcomeFailed)
		return metrics.OutcomeFailed
	}
	s.metrics.IncRouted(strategy.String())

	res, err := s.recorder.Insert(ctx, req)
	if err != nil {
		s.logg.Error(ctx, "payment left pending after persistence failure", err)
		s.metrics.IncEntry(metrics.OutcomeFailed)
		return metrics.OutcomeFailed
	}
	if res == payments.InsertDuplicate {
		s.logg.Warn(ctx, "payment already recorded")
		s.metrics.IncEntry(metrics.OutcomeDuplicate)
		return metrics.OutcomeDuplicate
	}
	s.logg.Debug(ctx, fmt.Sprintf("payment recorded via %s", strategy))
	s.metrics.IncEntry(metrics.OutcomeProcessed)
	return metrics.OutcomeProcessed
}

// acknowledge survives cancellation of ctx so finished work is not redelivered.
func (s *Service) acknowledge(ctx context.Context, consumer string, ids []string) int64 {
	if len(ids) == 0 {
		return 0
	}
	ackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ackTimeout)
	defer cancel()

	n, err := s.queue.Acknowledge(ackCtx, ids)
	if err != nil {
		s.logg.Error(ctx, fmt.Sprintf("acknowledging %d entries failed", len(ids)), err)
		return 0
	}
	s.metrics.AddAcked(consumer, n)
	return n
}
