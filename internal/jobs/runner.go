// Package jobs runs periodic maintenance work next to the HTTP server.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Task is one periodic job. Run errors are logged and the schedule continues.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

type Runner struct {
	tasks []Task
}

func NewRunner() *Runner {
	return &Runner{}
}

// Every schedules fn. A non-positive interval leaves the task disabled.
func (r *Runner) Every(name string, interval time.Duration, fn func(ctx context.Context) error) {
	if interval <= 0 {
		slog.Info("job disabled", "job", name)
		return
	}
	r.tasks = append(r.tasks, Task{Name: name, Interval: interval, Run: fn})
}

func (r *Runner) Len() int { return len(r.tasks) }

// Run blocks until ctx is cancelled and every task has returned.
func (r *Runner) Run(ctx context.Context) error {
	if len(r.tasks) == 0 {
		<-ctx.Done()
		return nil
	}
	g, ctx := errgroup.WithContext(ctx)
	for _, task := range r.tasks {
		g.Go(func() error {
			loop(ctx, task)
			return nil
		})
	}
	return g.Wait()
}

func loop(ctx context.Context, task Task) {
	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			if err := task.Run(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Error("job failed", "job", task.Name, "err", err)
				continue
			}
			slog.Debug("job finished", "job", task.Name, "took", time.Since(start))
		}
	}
}
