// Package workflow runs the pipeline as a strictly linear chain of tasks,
// once or on a cron schedule.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"
)

// Task is one node of a DAG.
type Task struct {
	ID  string
	Run func(ctx context.Context) error
}

// DAG is a linear chain of tasks. Each task runs only after the previous one
// succeeded.
type DAG struct {
	Name       string
	Schedule   string
	Retries    int
	RetryDelay time.Duration
	Tasks      []Task
}

// TaskError reports a task that failed on every attempt.
type TaskError struct {
	Task     string
	Attempts int
	Err      error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s failed after %d attempt(s): %v", e.Task, e.Attempts, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// String renders the chain as "a >> b >> c".
func (d *DAG) String() string {
	ids := make([]string, len(d.Tasks))
	for i, t := range d.Tasks {
		ids[i] = t.ID
	}
	return strings.Join(ids, " >> ")
}

// Validate checks that the chain is non-empty and its task ids are unique.
func (d *DAG) Validate() error {
	if len(d.Tasks) == 0 {
		return fmt.Errorf("dag %s has no tasks", d.Name)
	}
	seen := make(map[string]bool, len(d.Tasks))
	for _, t := range d.Tasks {
		if t.ID == "" || t.Run == nil {
			return fmt.Errorf("dag %s: task %q needs an id and a function", d.Name, t.ID)
		}
		if seen[t.ID] {
			return fmt.Errorf("dag %s: duplicate task %q", d.Name, t.ID)
		}
		seen[t.ID] = true
	}
	if d.Retries < 0 {
		return fmt.Errorf("dag %s: retries must not be negative", d.Name)
	}
	return nil
}

// Run executes the tasks in order. A task is attempted up to Retries+1 times
// with RetryDelay between attempts; the first task that exhausts its attempts
// stops the run and is returned as a *TaskError.
func (d *DAG) Run(ctx context.Context) error {
	if err := d.Validate(); err != nil {
		return err
	}

	start := time.Now()
	slog.InfoContext(ctx, "starting dag run", "dag", d.Name, "chain", d.String())

	for _, t := range d.Tasks {
		if err := d.runTask(ctx, t); err != nil {
			slog.ErrorContext(ctx, "dag run failed", "dag", d.Name, "task", t.ID, "error", err)
			return err
		}
	}

	slog.InfoContext(ctx, "dag run finished", "dag", d.Name, "duration", time.Since(start).String())
	return nil
}

func (d *DAG) runTask(ctx context.Context, t Task) error {
	attempts := d.Retries + 1

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		slog.InfoContext(ctx, "running task", "task", t.ID, "attempt", attempt)

		start := time.Now()
		err = safeRun(ctx, t)
		if err == nil {
			slog.InfoContext(ctx, "task succeeded", "task", t.ID, "duration", time.Since(start).String())
			return nil
		}

		if attempt == attempts || ctx.Err() != nil {
			return &TaskError{Task: t.ID, Attempts: attempt, Err: err}
		}

		slog.WarnContext(ctx, "task failed, retrying",
			"task", t.ID,
			"attempt", attempt,
			"retry_in", d.RetryDelay.String(),
			"error", err,
		)
		if werr := wait(ctx, d.RetryDelay); werr != nil {
			return &TaskError{Task: t.ID, Attempts: attempt, Err: errors.Join(err, werr)}
		}
	}

	return &TaskError{Task: t.ID, Attempts: attempts, Err: err}
}

func safeRun(ctx context.Context, t Task) (err error) {
	defer func() {
		if rvr := recover(); rvr != nil {
			slog.ErrorContext(ctx, "panic occurred in task", "task", t.ID, "stack", string(debug.Stack()))
			err = fmt.Errorf("panic: %v", rvr)
		}
	}()

	return t.Run(ctx)
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
