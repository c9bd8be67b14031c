package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/brightboard/contentforge-backend/internal/logger"
	"github.com/brightboard/contentforge-backend/internal/utils"
)

// Queue names consumed by the worker process.
const (
	QueueHydration    = "hydration"
	QueueRegeneration = "regeneration"
)

// Envelope is the wire shape carried on every queue: the worker routes by
// Type and hands Payload to the matching workFn.
type Envelope struct {
	Type    string          `json:"type"` // SYLLABUS | NOTES | QUESTIONS | ASSEMBLE_TEST | REGENERATE
	Payload json.RawMessage `json:"payload"`
}

const (
	EnvelopeSyllabus     = "SYLLABUS"
	EnvelopeNotes        = "NOTES"
	EnvelopeQuestions    = "QUESTIONS"
	EnvelopeAssembleTest = "ASSEMBLE_TEST"
	EnvelopeRegenerate   = "REGENERATE"
)

// Client is the queue transport boundary. The Redis implementation below is
// the only production one; tests swap in an in-memory fake.
type Client interface {
	Push(ctx context.Context, queue string, payload []byte) error
	// Pop blocks up to timeout across the given queues; returns empty queue
	// name when nothing arrived.
	Pop(ctx context.Context, queues []string, timeout time.Duration) (string, []byte, error)
	Close() error
}

type redisClient struct {
	log       *logger.Logger
	rdb       *goredis.Client
	keyPrefix string
}

// NewRedisClient builds the queue client from REDIS_ADDR. The client is
// constructed once at process startup and passed by reference into every
// component that needs it; the process entrypoint owns Close.
func NewRedisClient(log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(utils.GetEnv("REDIS_ADDR", "", log))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	password := utils.GetEnv("REDIS_PASSWORD", "", nil)
	dbNum := utils.GetEnvAsInt("REDIS_DB", 0, log)

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DB:          dbNum,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisClient{
		log:       log.With("service", "RedisQueue"),
		rdb:       rdb,
		keyPrefix: "queue:",
	}, nil
}

func (c *redisClient) key(queue string) string {
	return c.keyPrefix + queue
}

func (c *redisClient) Push(ctx context.Context, queue string, payload []byte) error {
	if c == nil || c.rdb == nil {
		return fmt.Errorf("redis queue not initialized")
	}
	return c.rdb.LPush(ctx, c.key(queue), payload).Err()
}

func (c *redisClient) Pop(ctx context.Context, queues []string, timeout time.Duration) (string, []byte, error) {
	if c == nil || c.rdb == nil {
		return "", nil, fmt.Errorf("redis queue not initialized")
	}
	keys := make([]string, 0, len(queues))
	for _, q := range queues {
		keys = append(keys, c.key(q))
	}
	res, err := c.rdb.BRPop(ctx, timeout, keys...).Result()
	if err == goredis.Nil {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, err
	}
	if len(res) != 2 {
		return "", nil, fmt.Errorf("unexpected BRPOP reply length %d", len(res))
	}
	return strings.TrimPrefix(res[0], c.keyPrefix), []byte(res[1]), nil
}

func (c *redisClient) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
