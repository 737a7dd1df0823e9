package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"estate_portal_backend/internal/events"
	"estate_portal_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// ScheduleClaimExpiry enqueues the deferred expiry for one request.
func (c *Client) ScheduleClaimExpiry(ctx context.Context, requestID string, runAt time.Time) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewClaimExpireTask(ClaimExpirePayload{RequestID: requestID})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.ProcessAt(runAt), asynq.Queue(c.queue))
	return err
}

// RegisterHandlers schedules a deferred expiry for every created lead. A
// nil client subscribes nothing, so deployments without redis fall back to
// lazy expiry on claim.
func (c *Client) RegisterHandlers(bus events.Bus) {
	if c == nil || c.client == nil {
		return
	}

	bus.Subscribe(events.LeadCreated{}.EventName(), events.HandlerFunc(
		func(ctx context.Context, event events.Event) error {
			created, ok := event.(events.LeadCreated)
			if !ok {
				return nil
			}
			return c.ScheduleClaimExpiry(ctx, created.RequestID.String(), created.ExpiresAt)
		}))
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
