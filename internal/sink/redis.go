package sink

import (
	"context"
	"fmt"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

type redisSetter interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *rdb.StatusCmd
	Close() error
}

// Redis guarda el último snapshot de cada tipo en <prefix><node>:<kind>.
type Redis struct {
	c      redisSetter
	prefix string
}

// NewRedis conecta perezosamente (go-redis no abre conexión hasta el primer comando).
func NewRedis(addr string, db int, prefix string) *Redis {
	return newRedis(rdb.NewClient(&rdb.Options{Addr: addr, DB: db}), prefix)
}

func newRedis(c redisSetter, prefix string) *Redis {
	if prefix == "" {
		prefix = "thinkos:"
	}
	return &Redis{c: c, prefix: prefix}
}

func (r *Redis) Name() string { return "redis" }

// Key devuelve la key bajo la que queda el snapshot.
func (r *Redis) Key(node, kind string) string {
	return fmt.Sprintf("%s%s:%s", r.prefix, node, kind)
}

func (r *Redis) Publish(ctx context.Context, node, kind string, record any) error {
	b, err := encode(record)
	if err != nil {
		return err
	}
	if err := r.c.Set(ctx, r.Key(node, kind), b, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *Redis) Close() error { return r.c.Close() }
