// Package redis provides a thin wrapper around go-redis/v9 for keeping a
// word list in Redis: connect from a URL, read a set, list or sorted set,
// and atomically replace a list.
package redis

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNoKey is returned when the word-list key does not exist.
var ErrNoKey = errors.New("redis key does not exist")

const pushChunk = 1000

// Client wraps a go-redis client.
type Client struct {
	rdb *redis.Client
}

// NewFromURL creates a client from a redis:// or rediss:// URL and verifies
// the connection with a PING.
func NewFromURL(ctx context.Context, rawURL string) (*Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Client{rdb: rdb}, nil
}

// Words reads every member stored under key. Sets are returned sorted so
// that repeated loads assign the same order; lists and sorted sets keep
// their stored order.
func (c *Client) Words(ctx context.Context, key string) ([]string, error) {
	typ, err := c.rdb.Type(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("reading type of %s: %w", key, err)
	}
	switch typ {
	case "set":
		members, err := c.rdb.SMembers(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("reading set %s: %w", key, err)
		}
		slices.Sort(members)
		return members, nil
	case "list":
		members, err := c.rdb.LRange(ctx, key, 0, -1).Result()
		if err != nil {
			return nil, fmt.Errorf("reading list %s: %w", key, err)
		}
		return members, nil
	case "zset":
		members, err := c.rdb.ZRange(ctx, key, 0, -1).Result()
		if err != nil {
			return nil, fmt.Errorf("reading sorted set %s: %w", key, err)
		}
		return members, nil
	case "none":
		return nil, fmt.Errorf("%w: %s", ErrNoKey, key)
	default:
		return nil, fmt.Errorf("key %s holds a %s, want set, list or zset", key, typ)
	}
}

// ReplaceWords stores words as a list under key in a single transaction.
func (c *Client) ReplaceWords(ctx context.Context, key string, words []string) error {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		for start := 0; start < len(words); start += pushChunk {
			end := min(start+pushChunk, len(words))
			args := make([]interface{}, 0, end-start)
			for _, w := range words[start:end] {
				args = append(args, w)
			}
			pipe.RPush(ctx, key, args...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replacing words under %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping sends a PING to Redis and returns any error.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
