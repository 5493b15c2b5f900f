package commission

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Worker drives periodic jobs: the collector tick plus any housekeeping the
// service registers. Jobs never overlap with themselves.
type Worker struct {
	sched   gocron.Scheduler
	loggerf func(format string, args ...interface{})
}

func NewWorker(loggerf func(format string, args ...interface{})) (*Worker, error) {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &Worker{sched: s, loggerf: loggerf}, nil
}

// Every registers fn to run every interval with a per-run timeout.
func (w *Worker) Every(name string, interval, timeout time.Duration, fn func(ctx context.Context)) error {
	_, err := w.sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			defer func() {
				if r := recover(); r != nil {
					w.loggerf("level=error msg=job_panic job=%s panic=%v alert=true", name, r)
				}
			}()
			fn(ctx)
		}),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("register job %s: %w", name, err)
	}
	return nil
}

// AddCollector schedules the deferred-commission collector.
func (w *Worker) AddCollector(c *Collector, interval time.Duration) error {
	return w.Every("deferred-commission", interval, interval*4, func(ctx context.Context) {
		n, err := c.RunOnce(ctx)
		if err != nil {
			w.loggerf("level=error msg=collector_run_failed err=%v", err)
			return
		}
		if n > 0 {
			w.loggerf("level=info msg=collector_run attempted=%d", n)
		}
	})
}

func (w *Worker) Start() {
	w.sched.Start()
	w.loggerf("level=info msg=worker_started jobs=%d", len(w.sched.Jobs()))
}

func (w *Worker) Stop() error {
	return w.sched.Shutdown()
}
