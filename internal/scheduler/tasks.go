package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskAgentSweep = "agents.sweep"

type AgentSweepPayload struct {
	Trigger     string    `json:"trigger"`
	RequestedAt time.Time `json:"requestedAt"`
}

func NewAgentSweepTask(payload AgentSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAgentSweep, data), nil
}

func ParseAgentSweepPayload(task *asynq.Task) (AgentSweepPayload, error) {
	var payload AgentSweepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return AgentSweepPayload{}, err
	}
	return payload, nil
}
