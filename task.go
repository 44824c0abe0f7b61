package offlinecache

import "context"

// Task is the completion handle of a lifecycle phase.
// A phase is not done until its task is.
type Task struct {
	done chan struct{}
	err  error
}

func newTask() *Task {
	return &Task{done: make(chan struct{})}
}

// runTask runs fn in the background and completes the task with its result.
func runTask(fn func() error) *Task {
	t := newTask()
	go func() {
		t.complete(fn())
	}()
	return t
}

func (t *Task) complete(err error) {
	t.err = err
	close(t.done)
}

// Done is closed when the task has completed.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Err returns the result of a completed task, nil while still running.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Wait blocks until the task completes and returns its result.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
