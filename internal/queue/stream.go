package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rinhapay/payment-router/internal/payments"
	"github.com/rinhapay/payment-router/pkg/redis"
)

// Client is the stream command surface of pkg/redis.
type Client interface {
	XAdd(ctx context.Context, stream string, values map[string]any) (string, error)
	XAddBatch(ctx context.Context, stream string, batch []map[string]any) ([]string, error)
	EnsureGroup(ctx context.Context, stream, group string) error
	XReadGroup(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]redis.StreamMessage, error)
	XAck(ctx context.Context, stream, group string, ids ...string) (int64, error)
	XAutoClaim(ctx context.Context, stream, group, consumer string, minIdle time.Duration, count int64) ([]redis.StreamMessage, error)
	XPendingCount(ctx context.Context, stream, group string) (int64, error)
}

// Stream is the payments stream seen through one consumer group.
type Stream struct {
	client Client
	name   string
	group  string
}

func NewStream(client Client, name, group string) (*Stream, error) {
	if client == nil {
		return nil, errors.New("stream client is required")
	}
	if strings.TrimSpace(name) == "" || strings.TrimSpace(group) == "" {
		return nil, errors.New("stream name and group are required")
	}
	return &Stream{client: client, name: name, group: group}, nil
}

// Name returns the stream key.
func (s *Stream) Name() string { return s.name }

// Group returns the consumer group name.
func (s *Stream) Group() string { return s.group }

// Append adds one payment and returns its entry id.
func (s *Stream) Append(ctx context.Context, req payments.PaymentRequest) (string, error) {
	values, err := Encode(req)
	if err != nil {
		return "", err
	}
	id, err := s.client.XAdd(ctx, s.name, values)
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", s.name, err)
	}
	return id, nil
}

// AppendBatch adds payments in order with a single round trip.
func (s *Stream) AppendBatch(ctx context.Context, reqs []payments.PaymentRequest) ([]string, error) {
	if len(reqs) == 0 {
		return nil, nil
	}
	batch := make([]map[string]any, 0, len(reqs))
	for _, req := range reqs {
		values, err := Encode(req)
		if err != nil {
			return nil, err
		}
		batch = append(batch, values)
	}
	ids, err := s.client.XAddBatch(ctx, s.name, batch)
	if err != nil {
		return nil, fmt.Errorf("append batch to %s: %w", s.name, err)
	}
	return ids, nil
}

// AppendMarker adds a control entry that consumers acknowledge without processing.
func (s *Stream) AppendMarker(ctx context.Context) (string, error) {
	id, err := s.client.XAdd(ctx, s.name, map[string]any{FieldMarker: "1"})
	if err != nil {
		return "", fmt.Errorf("append marker to %s: %w", s.name, err)
	}
	return id, nil
}

// EnsureGroup creates the consumer group if missing.
func (s *Stream) EnsureGroup(ctx context.Context) error {
	if err := s.client.EnsureGroup(ctx, s.name, s.group); err != nil {
		return fmt.Errorf("ensure group %s on %s: %w", s.group, s.name, err)
	}
	return nil
}

// ReadBatch delivers up to count never-delivered entries to consumer.
func (s *Stream) ReadBatch(ctx context.Context, consumer string, count int64, block time.Duration) ([]Entry, error) {
	msgs, err := s.client.XReadGroup(ctx, s.name, s.group, consumer, count, block)
	if err != nil {
		return nil, fmt.Errorf("read %s as %s: %w", s.name, consumer, err)
	}
	return toEntries(msgs), nil
}

// Reclaim moves entries pending longer than minIdle to consumer and returns them.
func (s *Stream) Reclaim(ctx context.Context, consumer string, minIdle time.Duration, count int64) ([]Entry, error) {
	msgs, err := s.client.XAutoClaim(ctx, s.name, s.group, consumer, minIdle, count)
	if err != nil {
		return nil, fmt.Errorf("reclaim %s as %s: %w", s.name, consumer, err)
	}
	return toEntries(msgs), nil
}

// Acknowledge removes ids from the group's pending list. No ids means no call.
func (s *Stream) Acknowledge(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := s.client.XAck(ctx, s.name, s.group, ids...)
	if err != nil {
		return 0, fmt.Errorf("ack %d entries on %s: %w", len(ids), s.name, err)
	}
	return n, nil
}

// Pending returns the group's pending entry count.
func (s *Stream) Pending(ctx context.Context) (int64, error) {
	return s.client.XPendingCount(ctx, s.name, s.group)
}

func toEntries(msgs []redis.StreamMessage) []Entry {
	entries := make([]Entry, 0, len(msgs))
	for _, msg := range msgs {
		entries = append(entries, Entry{ID: msg.ID, Values: msg.Values})
	}
	return entries
}
