// Package retention purges intake submissions once they are older than the
// configured number of days.
package retention

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule runs the purge daily at 03:00 (six-field spec, seconds first)
const DefaultSchedule = "0 0 3 * * *"

// Purger deletes records created before a cutoff
type Purger interface {
	DeleteBefore(ctx context.Context, t time.Time) (int, error)
}

// Job runs the purge on a cron schedule
type Job struct {
	cron   *cron.Cron
	purger Purger
	days   int
	now    func() time.Time
}

// New registers the purge under spec. A job with days <= 0 is disabled and
// Start, Stop and RunNow do nothing.
func New(purger Purger, days int, spec string) (*Job, error) {
	j := &Job{purger: purger, days: days, now: time.Now}
	if !j.Enabled() {
		return j, nil
	}
	if spec == "" {
		spec = DefaultSchedule
	}

	j.cron = cron.New(cron.WithSeconds())
	if _, err := j.cron.AddFunc(spec, func() {
		if _, err := j.RunNow(context.Background()); err != nil {
			log.Printf("Retention purge failed: %v", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("register retention purge %q: %w", spec, err)
	}
	return j, nil
}

// Enabled reports whether the job purges anything
func (j *Job) Enabled() bool {
	return j.days > 0 && j.purger != nil
}

// Cutoff is the creation time before which records are purged
func (j *Job) Cutoff() time.Time {
	return j.now().AddDate(0, 0, -j.days)
}

// Start starts the scheduler
func (j *Job) Start() {
	if j.cron == nil {
		return
	}
	j.cron.Start()
	log.Printf("Retention purge scheduled, keeping %d days", j.days)
}

// Stop stops the scheduler and waits for a running purge to finish
func (j *Job) Stop() {
	if j.cron == nil {
		return
	}
	<-j.cron.Stop().Done()
}

// RunNow purges immediately and returns how many records were removed
func (j *Job) RunNow(ctx context.Context) (int, error) {
	if !j.Enabled() {
		return 0, nil
	}
	n, err := j.purger.DeleteBefore(ctx, j.Cutoff())
	if err != nil {
		return n, err
	}
	if n > 0 {
		log.Printf("Retention purge removed %d submissions", n)
	}
	return n, nil
}
