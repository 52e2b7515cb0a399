package payments

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/rinhapay/payment-router/pkg/errors"
)

// Enqueuer hands accepted payments to the stream without waiting on processors.
type Enqueuer interface {
	Enqueue(ctx context.Context, req PaymentRequest) error
}

// Service defines the ingestion and reporting operations.
type Service interface {
	Enqueue(ctx context.Context, input EnqueueInput) error
	GetSummary(ctx context.Context, from, to *time.Time) (Summary, error)
	Purge(ctx context.Context) (int64, error)
}

// EnqueueInput is the client-supplied part of a payment.
type EnqueueInput struct {
	CorrelationID string
	Amount        decimal.Decimal
}

// ServiceParams wires payments dependencies.
type ServiceParams struct {
	Repository Repository
	Queue      Enqueuer
	Clock      func() time.Time
}

type service struct {
	repo  Repository
	queue Enqueuer
	now   func() time.Time
}

// NewService wires payments dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payments repository required")
	}
	if params.Queue == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payments queue required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{repo: params.Repository, queue: params.Queue, now: clock}, nil
}

func (s *service) Enqueue(ctx context.Context, input EnqueueInput) error {
	req := PaymentRequest{
		CorrelationID: strings.TrimSpace(input.CorrelationID),
		Amount:        input.Amount,
		RequestedAt:   s.now().UTC(),
	}
	if err := req.Validate(); err != nil {
		return err
	}
	if err := s.queue.Enqueue(ctx, req); err != nil {
		if pkgerrors.As(err) != nil {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "enqueue payment")
	}
	return nil
}

func (s *service) GetSummary(ctx context.Context, from, to *time.Time) (Summary, error) {
	if from != nil && to != nil && from.After(*to) {
		return Summary{}, pkgerrors.New(pkgerrors.CodeValidation, "from must not be after to")
	}
	rows, err := s.repo.FindByRange(ctx, from, to)
	if err != nil {
		return Summary{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payments")
	}
	return Summarize(rows), nil
}

func (s *service) Purge(ctx context.Context) (int64, error) {
	deleted, err := s.repo.Purge(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "purge payments")
	}
	return deleted, nil
}
