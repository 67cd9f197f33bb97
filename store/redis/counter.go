/*
Package redis provides a Redis-backed core.Counter.

PURPOSE:
  Hands out attendance sequence numbers and overtime ref counters from a
  Redis instance shared by several API processes. INCR is atomic on the
  server, so no two callers ever receive the same value.

KEYS:
  <prefix><purpose>, e.g. "farmops:counter:overtime_ref"

USAGE:
  counter, err := redis.New(ctx, redis.Options{Addr: "localhost:6379"})
  if err != nil {
      return err
  }
  defer counter.Close()

SEE ALSO:
  - store/sqlite: counters table used when no Redis address is configured
*/
package redis

import (
	"context"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/warp/farmops/core"
)

// DefaultPrefix namespaces counter keys.
const DefaultPrefix = "farmops:counter:"

// Options configures the connection.
type Options struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}

// Counter implements core.Counter with INCR.
type Counter struct {
	client *goredis.Client
	prefix string
}

var _ core.Counter = (*Counter)(nil)

// New connects and pings the server.
func New(ctx context.Context, opts Options) (*Counter, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Username: opts.Username,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "failed to connect to redis at %s", opts.Addr)
	}
	return NewWithClient(client, opts.Prefix), nil
}

// NewWithClient wraps an existing client. An empty prefix uses DefaultPrefix.
func NewWithClient(client *goredis.Client, prefix string) *Counter {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Counter{client: client, prefix: prefix}
}

// Key returns the Redis key backing purpose.
func (c *Counter) Key(purpose string) string {
	return c.prefix + purpose
}

// Next atomically increments the counter for purpose and returns the new value.
func (c *Counter) Next(ctx context.Context, purpose string) (int64, error) {
	v, err := c.client.Incr(ctx, c.Key(purpose)).Result()
	if err != nil {
		return 0, core.Persistence("next counter", err)
	}
	return v, nil
}

func (c *Counter) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Counter) Close() error {
	return c.client.Close()
}
