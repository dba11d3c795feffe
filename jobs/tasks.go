package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReportsRefresh invalidates cached reports and rebuilds today's sales summary.
	TaskReportsRefresh = "reports:refresh"
)

// ReportsRefreshPayload describes why a refresh was requested.
type ReportsRefreshPayload struct {
	Reason string `json:"reason"`
}

// NewReportsRefreshTask constructs an Asynq task.
func NewReportsRefreshTask(reason string) (*asynq.Task, error) {
	data, err := json.Marshal(ReportsRefreshPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportsRefresh, data), nil
}
