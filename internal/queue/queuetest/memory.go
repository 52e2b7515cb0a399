// Package queuetest provides an in-memory stream client for tests.
package queuetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rinhapay/payment-router/pkg/redis"
)

type pendingEntry struct {
	consumer    string
	deliveredAt time.Time
	deliveries  int
}

type group struct {
	lastDelivered int
	pending       map[string]*pendingEntry
}

type stream struct {
	messages []redis.StreamMessage
	groups   map[string]*group
}

// MemoryClient mimics the Redis stream commands used by the queue.
type MemoryClient struct {
	mu       sync.Mutex
	streams  map[string]*stream
	seq      int64
	ackCalls [][]string

	// Now overrides the clock used for idle times.
	Now func() time.Time
	// FailAck makes XAck return an error.
	FailAck error
}

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{streams: map[string]*stream{}}
}

func (m *MemoryClient) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *MemoryClient) stream(name string) *stream {
	s, ok := m.streams[name]
	if !ok {
		s = &stream{groups: map[string]*group{}}
		m.streams[name] = s
	}
	return s
}

func (m *MemoryClient) XAdd(ctx context.Context, name string, values map[string]any) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	id := fmt.Sprintf("%d-0", m.seq)
	s := m.stream(name)
	copied := make(map[string]any, len(values))
	for k, v := range values {
		copied[k] = fmt.Sprint(v)
	}
	s.messages = append(s.messages, redis.StreamMessage{ID: id, Values: copied})
	return id, nil
}

func (m *MemoryClient) XAddBatch(ctx context.Context, name string, batch []map[string]any) ([]string, error) {
	ids := make([]string, 0, len(batch))
	for _, values := range batch {
		id, err := m.XAdd(ctx, name, values)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *MemoryClient) EnsureGroup(ctx context.Context, name, groupName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.stream(name)
	if _, ok := s.groups[groupName]; !ok {
		s.groups[groupName] = &group{pending: map[string]*pendingEntry{}}
	}
	return nil
}

func (m *MemoryClient) XReadGroup(ctx context.Context, name, groupName, consumer string, count int64, block time.Duration) ([]redis.StreamMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.stream(name)
	g, ok := s.groups[groupName]
	if !ok {
		return nil, errors.New("NOGROUP No such key or consumer group")
	}
	var out []redis.StreamMessage
	for g.lastDelivered < len(s.messages) && (count <= 0 || int64(len(out)) < count) {
		msg := s.messages[g.lastDelivered]
		g.lastDelivered++
		g.pending[msg.ID] = &pendingEntry{consumer: consumer, deliveredAt: m.now(), deliveries: 1}
		out = append(out, msg)
	}
	return out, nil
}

func (m *MemoryClient) XAck(ctx context.Context, name, groupName string, ids ...string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(ids) == 0 {
		return 0, nil
	}
	m.ackCalls = append(m.ackCalls, append([]string(nil), ids...))
	if m.FailAck != nil {
		return 0, m.FailAck
	}
	g, ok := m.stream(name).groups[groupName]
	if !ok {
		return 0, nil
	}
	var acked int64
	for _, id := range ids {
		if _, ok := g.pending[id]; ok {
			delete(g.pending, id)
			acked++
		}
	}
	return acked, nil
}

func (m *MemoryClient) XAutoClaim(ctx context.Context, name, groupName, consumer string, minIdle time.Duration, count int64) ([]redis.StreamMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.stream(name)
	g, ok := s.groups[groupName]
	if !ok {
		return nil, errors.New("NOGROUP No such key or consumer group")
	}
	now := m.now()
	var out []redis.StreamMessage
	for _, msg := range s.messages {
		if count > 0 && int64(len(out)) >= count {
			break
		}
		p, ok := g.pending[msg.ID]
		if !ok || now.Sub(p.deliveredAt) < minIdle {
			continue
		}
		p.consumer = consumer
		p.deliveredAt = now
		p.deliveries++
		out = append(out, msg)
	}
	return out, nil
}

func (m *MemoryClient) XPendingCount(ctx context.Context, name, groupName string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.stream(name).groups[groupName]
	if !ok {
		return 0, errors.New("NOGROUP No such key or consumer group")
	}
	return int64(len(g.pending)), nil
}

// AckCalls returns the id lists passed to every XAck call.
func (m *MemoryClient) AckCalls() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]string, len(m.ackCalls))
	copy(out, m.ackCalls)
	return out
}

// AckedIDs flattens AckCalls.
func (m *MemoryClient) AckedIDs() []string {
	var ids []string
	for _, call := range m.AckCalls() {
		ids = append(ids, call...)
	}
	return ids
}

// Len returns the number of entries appended to the stream.
func (m *MemoryClient) Len(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stream(name).messages)
}

// Messages returns a copy of the stream's entries.
func (m *MemoryClient) Messages(name string) []redis.StreamMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.stream(name).messages
	out := make([]redis.StreamMessage, len(msgs))
	copy(out, msgs)
	return out
}
