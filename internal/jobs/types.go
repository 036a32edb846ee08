package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/briangreenhill/tripparse/travel"
)

const (
	TaskParseFlight  = "parse:flight"
	TaskParseLodging = "parse:lodging"

	// QueueParse is the asynq queue parse tasks are sent to.
	QueueParse = "parse"
)

type ParsePayload struct {
	JobID string `json:"job_id"`
	URL   string `json:"url"`
}

// TaskType returns the asynq task type for kind.
func TaskType(kind travel.DataType) (string, bool) {
	switch kind {
	case travel.KindFlight:
		return TaskParseFlight, true
	case travel.KindLodging:
		return TaskParseLodging, true
	}
	return "", false
}

// KindForTask is the inverse of TaskType.
func KindForTask(taskType string) (travel.DataType, bool) {
	switch taskType {
	case TaskParseFlight:
		return travel.KindFlight, true
	case TaskParseLodging:
		return travel.KindLodging, true
	}
	return "", false
}

// NewParseTask builds the task that parses link for job id.
func NewParseTask(kind travel.DataType, id uuid.UUID, link string) (*asynq.Task, error) {
	taskType, ok := TaskType(kind)
	if !ok {
		return nil, fmt.Errorf("no task for data type %q", kind)
	}
	payload, err := json.Marshal(ParsePayload{JobID: id.String(), URL: link})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, payload), nil
}
