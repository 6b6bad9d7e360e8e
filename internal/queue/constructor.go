package queue

import (
	"github.com/creatorhub/crosspost-api/internal/service"
)

// Queue wires the asynq side of scheduling: delayed promotion tasks on
// the way in, the promotion handler on the way out.
type Queue struct {
	ss service.ScheduleService
}

func NewQueue(ss service.ScheduleService) *Queue {
	return &Queue{ss: ss}
}

const TaskTypeSchedulePromote = "schedule:promote"

type SchedulePromotePayload struct {
	ScheduleID string `json:"schedule_id"`
}
