package job

import (
	"context"
	"log/slog"

	"github.com/creatorhub/crosspost-api/internal/service"
)

// SweepJob is the safety net behind the delayed promotion tasks: every
// few minutes it promotes any pending scheduled post whose instant has
// passed, catching entries whose queue task was lost.
type SweepJob struct {
	ss service.ScheduleService
}

func NewSweepJob(ss service.ScheduleService) *SweepJob {
	return &SweepJob{ss: ss}
}

func (j *SweepJob) PromoteDue() {
	ctx := context.Background()

	if err := j.ss.PromoteDue(ctx); err != nil {
		slog.Info(err.Error())
	}
}
