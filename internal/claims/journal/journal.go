// Package journal persists claim request snapshots to redis so the
// coordinator can rehydrate in-flight requests after a restart. Writes are
// best-effort; the in-memory coordinator stays the source of truth.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"estate_portal_backend/internal/claims/domain"
	"estate_portal_backend/platform/config"
	"estate_portal_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "claims:journal:"

// RedisJournal stores one JSON record per request id with a TTL so stale
// terminal records age out on their own.
type RedisJournal struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// New connects to redis from the journal config. Returns (nil, nil) when no
// redis URL is configured; callers treat a nil journal as disabled.
func New(cfg config.JournalConfig, log *logger.Logger) (*RedisJournal, error) {
	url := cfg.GetRedisURL()
	if url == "" {
		return nil, nil
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if cfg.GetRedisTLSInsecure() && opt.TLSConfig != nil {
		opt.TLSConfig.InsecureSkipVerify = true
	}

	return &RedisJournal{
		client: redis.NewClient(opt),
		ttl:    cfg.GetJournalTTL(),
		log:    log,
	}, nil
}

// NewWithClient wraps an existing client. Used by tests.
func NewWithClient(client *redis.Client, ttl time.Duration, log *logger.Logger) *RedisJournal {
	return &RedisJournal{client: client, ttl: ttl, log: log}
}

// Record overwrites the journal entry for req.ID with the given snapshot.
func (j *RedisJournal) Record(ctx context.Context, req domain.Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal journal record: %w", err)
	}
	if err := j.client.Set(ctx, key(req.ID), data, j.ttl).Err(); err != nil {
		return fmt.Errorf("write journal record: %w", err)
	}
	return nil
}

// LoadActive returns every journaled request that is not in a terminal
// status. Records that fail to decode are skipped with a warning rather
// than blocking startup.
func (j *RedisJournal) LoadActive(ctx context.Context) ([]domain.Request, error) {
	var out []domain.Request

	iter := j.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := j.client.Get(ctx, iter.Val()).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read journal record %s: %w", iter.Val(), err)
		}

		var req domain.Request
		if err := json.Unmarshal(data, &req); err != nil {
			j.log.Warn("skipping corrupt journal record", "key", iter.Val(), "error", err)
			continue
		}
		if req.Status.Terminal() {
			continue
		}
		out = append(out, req)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan journal: %w", err)
	}
	return out, nil
}

// Close releases the redis connection.
func (j *RedisJournal) Close() error {
	return j.client.Close()
}

func key(id uuid.UUID) string {
	return keyPrefix + id.String()
}
