package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type streamCmdable interface {
	XAdd(context.Context, *redis.XAddArgs) *redis.StringCmd
	XGroupCreateMkStream(context.Context, string, string, string) *redis.StatusCmd
	XReadGroup(context.Context, *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAck(context.Context, string, string, ...string) *redis.IntCmd
	XAutoClaim(context.Context, *redis.XAutoClaimArgs) *redis.XAutoClaimCmd
	XPending(context.Context, string, string) *redis.XPendingCmd
	Pipelined(context.Context, func(redis.Pipeliner) error) ([]redis.Cmder, error)
}

// StreamMessage is a single stream entry as returned by the group commands.
type StreamMessage = redis.XMessage

// XAdd appends one entry with an auto-generated id and returns that id.
func (c *Client) XAdd(ctx context.Context, stream string, values map[string]any) (string, error) {
	if c.streams == nil {
		return "", errNotInitialized
	}
	return c.streams.XAdd(ctx, &redis.XAddArgs{Stream: stream, Values: values}).Result()
}

// XAddBatch appends entries in a single pipeline round trip, preserving order.
func (c *Client) XAddBatch(ctx context.Context, stream string, batch []map[string]any) ([]string, error) {
	if c.streams == nil {
		return nil, errNotInitialized
	}
	if len(batch) == 0 {
		return nil, nil
	}
	cmds := make([]*redis.StringCmd, len(batch))
	if _, err := c.streams.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, values := range batch {
			cmds[i] = p.XAdd(ctx, &redis.XAddArgs{Stream: stream, Values: values})
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("pipelined xadd: %w", err)
	}
	ids := make([]string, len(cmds))
	for i, cmd := range cmds {
		ids[i] = cmd.Val()
	}
	return ids, nil
}

// EnsureGroup creates the consumer group (and the stream) starting at the first entry.
// An already existing group is not an error.
func (c *Client) EnsureGroup(ctx context.Context, stream, group string) error {
	if c.streams == nil {
		return errNotInitialized
	}
	err := c.streams.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err == nil || IsBusyGroup(err) {
		return nil
	}
	return err
}

// XReadGroup reads up to count new entries for the consumer, blocking at most block.
// A timeout with nothing delivered returns an empty result and a nil error.
func (c *Client) XReadGroup(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]StreamMessage, error) {
	if c.streams == nil {
		return nil, errNotInitialized
	}
	if block <= 0 {
		// zero blocks forever in XREADGROUP
		block = time.Millisecond
	}
	res, err := c.streams.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if IsNil(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []StreamMessage
	for _, s := range res {
		if s.Stream == stream {
			out = append(out, s.Messages...)
		}
	}
	return out, nil
}

// XAck acknowledges the ids for the group. No ids means no round trip.
func (c *Client) XAck(ctx context.Context, stream, group string, ids ...string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	if c.streams == nil {
		return 0, errNotInitialized
	}
	return c.streams.XAck(ctx, stream, group, ids...).Result()
}

// XAutoClaim transfers entries idle for at least minIdle to consumer.
func (c *Client) XAutoClaim(ctx context.Context, stream, group, consumer string, minIdle time.Duration, count int64) ([]StreamMessage, error) {
	if c.streams == nil {
		return nil, errNotInitialized
	}
	msgs, _, err := c.streams.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   stream,
		Group:    group,
		Consumer: consumer,
		MinIdle:  minIdle,
		Start:    "0-0",
		Count:    count,
	}).Result()
	if IsNil(err) {
		return nil, nil
	}
	return msgs, err
}

// XPendingCount returns the number of delivered but unacknowledged entries of the group.
func (c *Client) XPendingCount(ctx context.Context, stream, group string) (int64, error) {
	if c.streams == nil {
		return 0, errNotInitialized
	}
	res, err := c.streams.XPending(ctx, stream, group).Result()
	if err != nil {
		return 0, err
	}
	return res.Count, nil
}

// IsBusyGroup reports whether err is the BUSYGROUP reply of XGROUP CREATE.
func IsBusyGroup(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}
