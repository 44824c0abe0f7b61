package worker

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// background tracks detached tasks that outlive the request that spawned them.
// Failures are logged since nobody awaits the result.
type background struct {
	wg     sync.WaitGroup
	log    zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func newBackground(log zerolog.Logger) *background {
	ctx, cancel := context.WithCancel(context.Background())
	return &background{log: log, ctx: ctx, cancel: cancel}
}

// spawn runs fn with a context that is not cancelled when ctx is, only when
// the background is stopped.
func (b *background) spawn(ctx context.Context, name string, fn func(ctx context.Context) error) {
	b.wg.Add(1)
	detached, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(b.ctx, cancel)
	go func() {
		defer b.wg.Done()
		defer stop()
		defer cancel()
		if err := fn(detached); err != nil {
			b.log.Debug().Err(err).Str("task", name).Msg("Background task failed")
		} else {
			b.log.Trace().Str("task", name).Msg("Background task done")
		}
	}()
}

// stop cancels the running tasks and every task spawned afterwards.
func (b *background) stop() {
	b.cancel()
}

func (b *background) wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
