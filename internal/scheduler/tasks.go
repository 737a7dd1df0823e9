package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// TaskClaimExpire is a deferred task enqueued at lead intake to fire at the
// request's expiry deadline.
const TaskClaimExpire = "claims.expire"

type ClaimExpirePayload struct {
	RequestID string `json:"requestId"`
}

func NewClaimExpireTask(payload ClaimExpirePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskClaimExpire, data), nil
}

func ParseClaimExpirePayload(task *asynq.Task) (ClaimExpirePayload, error) {
	var payload ClaimExpirePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ClaimExpirePayload{}, err
	}
	return payload, nil
}
