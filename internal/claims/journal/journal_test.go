package journal

import (
	"context"
	"testing"
	"time"

	"estate_portal_backend/internal/claims/domain"
	"estate_portal_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func newTestJournal(t *testing.T) *RedisJournal {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewWithClient(client, time.Hour, logger.New("development"))
}

func makeRequest(status domain.Status) domain.Request {
	now := time.Now().UTC().Truncate(time.Second)
	return domain.Request{
		ID:      uuid.New(),
		Payload: "terrace extension",
		Candidates: []domain.Candidate{
			{AgentID: uuid.New(), Name: "Agent A", ContactHandle: "+31612345678"},
			{AgentID: uuid.New(), Name: "Agent B", ContactHandle: "b@example.com"},
		},
		Status:    status,
		CreatedAt: now,
		ExpiresAt: now.Add(30 * time.Minute),
	}
}

func TestRecordAndLoadActive(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	active := makeRequest(domain.StatusBroadcast)
	terminal := makeRequest(domain.StatusCancelled)

	if err := j.Record(ctx, active); err != nil {
		t.Fatalf("Record active: %v", err)
	}
	if err := j.Record(ctx, terminal); err != nil {
		t.Fatalf("Record terminal: %v", err)
	}

	loaded, err := j.LoadActive(ctx)
	if err != nil {
		t.Fatalf("LoadActive: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("expected 1 active record, got %d", len(loaded))
	}
	got := loaded[0]
	if got.ID != active.ID || got.Status != domain.StatusBroadcast {
		t.Fatalf("loaded wrong record: %+v", got)
	}
	if len(got.Candidates) != 2 || got.Candidates[0].ContactHandle != "+31612345678" {
		t.Fatalf("candidate snapshot not preserved: %+v", got.Candidates)
	}
}

func TestRecordOverwritesPriorSnapshot(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	req := makeRequest(domain.StatusPending)
	if err := j.Record(ctx, req); err != nil {
		t.Fatalf("Record: %v", err)
	}

	winner := req.Candidates[0].AgentID
	claimedAt := time.Now().UTC().Truncate(time.Second)
	req.Status = domain.StatusClaimed
	req.ClaimedBy = &winner
	req.ClaimedAt = &claimedAt
	if err := j.Record(ctx, req); err != nil {
		t.Fatalf("Record update: %v", err)
	}

	// Claimed is terminal, so the updated record must drop out of the
	// active set entirely.
	loaded, err := j.LoadActive(ctx)
	if err != nil {
		t.Fatalf("LoadActive: %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("expected no active records after claim, got %d", len(loaded))
	}
}

func TestLoadActiveSkipsCorruptRecords(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	j := NewWithClient(client, time.Hour, logger.New("development"))
	ctx := context.Background()

	good := makeRequest(domain.StatusPending)
	if err := j.Record(ctx, good); err != nil {
		t.Fatalf("Record: %v", err)
	}
	mr.Set(keyPrefix+"broken", "not json")

	loaded, err := j.LoadActive(ctx)
	if err != nil {
		t.Fatalf("LoadActive: %v", err)
	}
	if len(loaded) != 1 || loaded[0].ID != good.ID {
		t.Fatalf("expected only the intact record, got %+v", loaded)
	}
}
