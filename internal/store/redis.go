package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configures the queue connection. Zero timeouts use the defaults below.
type RedisOptions struct {
	Addr         string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

const (
	defaultRedisDialTimeout = 2 * time.Second
	defaultRedisIOTimeout   = time.Second
)

// Redis holds the client shared by the frame and detection queues.
type Redis struct {
	Client *redis.Client
	addr   string
}

// NewRedis builds a client; it does not dial until first use.
func NewRedis(opts RedisOptions) *Redis {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = defaultRedisDialTimeout
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = defaultRedisIOTimeout
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultRedisIOTimeout
	}
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	})
	return &Redis{Client: client, addr: opts.Addr}
}

func (r *Redis) Addr() string { return r.addr }

// Healthy pings the server. A nil Redis is never healthy.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}

func (r *Redis) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}
