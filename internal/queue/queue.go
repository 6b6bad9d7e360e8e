package queue

import (
	"encoding/json"
	"log"
	"time"

	"github.com/hibiken/asynq"
)

// Enqueuer registers delayed promotion tasks with asynq. It satisfies
// service.ScheduleEnqueuer.
type Enqueuer struct {
	client *asynq.Client
}

func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

func (e *Enqueuer) EnqueueSchedule(scheduleID string, delay time.Duration) error {
	payload, err := json.Marshal(SchedulePromotePayload{ScheduleID: scheduleID})
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypeSchedulePromote, payload)

	_, err = e.client.Enqueue(task, asynq.ProcessIn(delay))
	if err != nil {
		return err
	}

	log.Printf("Promotion task scheduled: %s in %s", scheduleID, delay)
	return nil
}
