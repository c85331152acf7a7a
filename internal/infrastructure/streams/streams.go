// Package streams provides a thin facade over Redis Streams: append,
// consumer-group reads, acknowledgement, deletion, range scans, and
// auto-claim. Values are decoded to strings on read so callers never see
// the broker's byte/interface representation.
package streams

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Message is one decoded stream entry.
type Message struct {
	ID     string
	Values map[string]string
}

// Client wraps a Redis connection with stream operations.
type Client struct {
	rdb *redis.Client
}

// NewClient creates a stream client over an existing Redis connection.
func NewClient(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

// Append appends a record to the stream and returns the broker-assigned id.
func (c *Client) Append(ctx context.Context, stream string, values map[string]interface{}) (string, error) {
	id, err := c.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: values,
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd %s: %w", stream, err)
	}
	return id, nil
}

// CreateGroup ensures the consumer group exists, creating the stream if
// needed. Creation is idempotent: a BUSYGROUP reply means the group is
// already there and is not an error.
func (c *Client) CreateGroup(ctx context.Context, stream, group string) error {
	err := c.rdb.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("xgroup create %s/%s: %w", stream, group, err)
	}
	return nil
}

// ReadGroup reads up to count entries never delivered to another consumer
// of the group, blocking up to block when the stream is empty. An empty
// result is returned as a nil slice, not an error.
func (c *Client) ReadGroup(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]Message, error) {
	res, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var messages []Message
	for _, s := range res {
		for _, msg := range s.Messages {
			messages = append(messages, decode(msg))
		}
	}
	return messages, nil
}

// Ack acknowledges an entry, removing it from the group's pending list.
func (c *Client) Ack(ctx context.Context, stream, group, id string) error {
	if err := c.rdb.XAck(ctx, stream, group, id).Err(); err != nil {
		return fmt.Errorf("xack %s %s: %w", stream, id, err)
	}
	return nil
}

// Delete removes entries from the stream by id.
func (c *Client) Delete(ctx context.Context, stream string, ids ...string) error {
	if err := c.rdb.XDel(ctx, stream, ids...).Err(); err != nil {
		return fmt.Errorf("xdel %s: %w", stream, err)
	}
	return nil
}

// Range scans the stream between two ids inclusive. Use "-" and "+" for a
// full scan.
func (c *Client) Range(ctx context.Context, stream, from, to string) ([]Message, error) {
	res, err := c.rdb.XRange(ctx, stream, from, to).Result()
	if err != nil {
		return nil, fmt.Errorf("xrange %s: %w", stream, err)
	}

	messages := make([]Message, 0, len(res))
	for _, msg := range res {
		messages = append(messages, decode(msg))
	}
	return messages, nil
}

// AutoClaim transfers ownership of pending entries idle for at least
// minIdle to the given consumer, starting the scan at start. It returns
// the claimed entries and the cursor for the next call.
func (c *Client) AutoClaim(ctx context.Context, stream, group, consumer string, minIdle time.Duration, start string, count int64) (string, []Message, error) {
	claimed, next, err := c.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   stream,
		Group:    group,
		Consumer: consumer,
		MinIdle:  minIdle,
		Start:    start,
		Count:    count,
	}).Result()
	if err != nil {
		return "", nil, fmt.Errorf("xautoclaim %s/%s: %w", stream, group, err)
	}

	messages := make([]Message, 0, len(claimed))
	for _, msg := range claimed {
		messages = append(messages, decode(msg))
	}
	return next, messages, nil
}

// IsNoGroup reports whether the error is the broker's NOGROUP reply,
// meaning the consumer group (or stream) no longer exists.
func IsNoGroup(err error) bool {
	return err != nil && strings.Contains(err.Error(), "NOGROUP")
}

func decode(msg redis.XMessage) Message {
	values := make(map[string]string, len(msg.Values))
	for k, v := range msg.Values {
		switch s := v.(type) {
		case string:
			values[k] = s
		case []byte:
			values[k] = string(s)
		default:
			values[k] = fmt.Sprint(v)
		}
	}
	return Message{ID: msg.ID, Values: values}
}
