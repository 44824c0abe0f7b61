package offlinecache

import (
	"context"
	"errors"
	"fmt"

	"github.com/always-cache/offline-cache/worker"
)

var (
	ErrNothingWaiting = errors.New("no installed worker is waiting")
	ErrNotActive      = errors.New("worker is not active")
	ErrSuperseded     = errors.New("worker was superseded by a newer registration")
)

type State string

const (
	StateInstalling State = "installing"
	StateInstalled  State = "installed"
	StateActivating State = "activating"
	StateActivated  State = "activated"
	StateRedundant  State = "redundant"
)

// generation is one registered worker and the runtime it sees.
// All fields but worker and activated are guarded by OfflineCache.mu.
type generation struct {
	id          uint64
	worker      *worker.Worker
	o           *OfflineCache
	state       State
	skipWaiting bool
	preload     bool
	err         error
	// closed when activation has either finished or failed
	activated chan struct{}
}

func (g *generation) SkipWaiting() {
	g.o.mu.Lock()
	defer g.o.mu.Unlock()
	g.skipWaiting = true
}

func (g *generation) EnableNavigationPreload(context.Context) error {
	if !g.o.navigationPreload {
		return worker.ErrPreloadUnsupported
	}
	g.o.mu.Lock()
	defer g.o.mu.Unlock()
	g.preload = true
	return nil
}

func (g *generation) Claim(context.Context) error {
	g.o.mu.Lock()
	defer g.o.mu.Unlock()
	if g.o.active != g {
		return ErrNotActive
	}
	g.o.claimed = g
	return nil
}

func (g *generation) preloadEnabled() bool {
	g.o.mu.Lock()
	defer g.o.mu.Unlock()
	return g.preload
}

// ready waits for the activation of the generation and reports whether it succeeded.
func (g *generation) ready(ctx context.Context) bool {
	select {
	case <-g.activated:
	case <-ctx.Done():
		return false
	}
	g.o.mu.Lock()
	defer g.o.mu.Unlock()
	return g.err == nil
}

// Register installs a worker for the given version. The worker is activated
// right away when it asks to skip waiting or when no worker is active yet;
// otherwise it waits for Promote. The task completes when the worker is
// activated or waiting, or with the install or activation error.
func (o *OfflineCache) Register(ctx context.Context, version string) *Task {
	return runTask(func() error {
		return o.register(ctx, version)
	})
}

func (o *OfflineCache) register(ctx context.Context, version string) error {
	w, err := worker.New(worker.Config{
		Version:         version,
		Scope:           o.scope,
		Manifest:        o.manifest,
		OfflineDocument: o.offlineDocument,
		Storage:         o.storage,
		Network:         o.network,
		Logger:          &o.log,
	})
	if err != nil {
		return err
	}

	o.mu.Lock()
	o.nextID++
	g := &generation{
		id:        o.nextID,
		worker:    w,
		o:         o,
		state:     StateInstalling,
		activated: make(chan struct{}),
	}
	if o.installing != nil {
		o.installing.state = StateRedundant
	}
	o.installing = g
	o.generations = append(o.generations, g)
	o.mu.Unlock()

	o.log.Info().Str("version", version).Msg("Installing worker")
	if err := w.Install(ctx, g); err != nil {
		o.mu.Lock()
		g.state = StateRedundant
		g.err = err
		if o.installing == g {
			o.installing = nil
		}
		o.mu.Unlock()
		close(g.activated)
		o.log.Error().Err(err).Str("version", version).Msg("Could not install worker")
		return fmt.Errorf("install %s: %w", version, err)
	}

	o.mu.Lock()
	if o.installing != g {
		g.state = StateRedundant
		g.err = ErrSuperseded
		o.mu.Unlock()
		close(g.activated)
		o.log.Info().Str("version", version).Msg("Installed worker superseded")
		return ErrSuperseded
	}
	o.installing = nil
	if o.waiting != nil {
		o.waiting.state = StateRedundant
		close(o.waiting.activated)
	}
	g.state = StateInstalled
	o.waiting = g
	activate := g.skipWaiting || o.active == nil
	o.mu.Unlock()

	if !activate {
		o.log.Info().Str("version", version).Msg("Worker installed and waiting")
		return nil
	}
	return o.activate(ctx, g)
}

// Promote activates the waiting worker.
func (o *OfflineCache) Promote(ctx context.Context) *Task {
	o.mu.Lock()
	g := o.waiting
	o.mu.Unlock()
	if g == nil {
		t := newTask()
		t.complete(ErrNothingWaiting)
		return t
	}
	return runTask(func() error {
		return o.activate(ctx, g)
	})
}

func (o *OfflineCache) activate(ctx context.Context, g *generation) error {
	o.mu.Lock()
	if o.waiting != g {
		o.mu.Unlock()
		return ErrNothingWaiting
	}
	o.waiting = nil
	previous := o.active
	o.active = g
	g.state = StateActivating
	o.mu.Unlock()

	version := g.worker.Version()
	o.log.Info().Str("version", version).Msg("Activating worker")
	err := g.worker.Activate(ctx, g)

	o.mu.Lock()
	if err != nil {
		g.state = StateRedundant
		g.err = err
		// roll back to the previous worker
		o.active = previous
		if o.claimed == g {
			o.claimed = nil
		}
	} else {
		g.state = StateActivated
		if previous != nil {
			previous.state = StateRedundant
		}
	}
	close(g.activated)
	o.mu.Unlock()

	if err != nil {
		o.log.Error().Err(err).Str("version", version).Msg("Could not activate worker")
		return fmt.Errorf("activate %s: %w", version, err)
	}
	return nil
}
