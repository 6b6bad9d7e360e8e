package queue

import (
	"context"
	"encoding/json"
	"log"

	"github.com/hibiken/asynq"
)

// HandleSchedulePromoteTask promotes one scheduled post when its delay
// elapses. Promotion itself is idempotent, so a retried or duplicated
// task is harmless.
func (q *Queue) HandleSchedulePromoteTask(ctx context.Context, task *asynq.Task) error {
	var payload SchedulePromotePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	if err := q.ss.Promote(ctx, payload.ScheduleID); err != nil {
		log.Printf("Error promoting schedule %s: %v", payload.ScheduleID, err)
		return err
	}
	return nil
}
