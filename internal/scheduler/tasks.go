// Package scheduler runs the background side of the lead pipeline: the
// periodic inactivity sweep that persists PERSO for stale leads. Work is
// distributed through asynq so multiple sweeper replicas do not trample
// each other; without Redis the sweep degrades to an in-process ticker.
package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskLeadExpirySweep = "leads.expiry.sweep"

type LeadExpirySweepPayload struct {
	RequestedAt time.Time `json:"requestedAt"`
}

func NewLeadExpirySweepTask(payload LeadExpirySweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLeadExpirySweep, data), nil
}

func ParseLeadExpirySweepPayload(task *asynq.Task) (LeadExpirySweepPayload, error) {
	var payload LeadExpirySweepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return LeadExpirySweepPayload{}, err
	}
	return payload, nil
}
