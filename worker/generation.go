package worker

import (
	"context"
	"fmt"

	"github.com/always-cache/offline-cache/cache"

	"golang.org/x/sync/errgroup"
)

// maximum number of concurrent network calls while populating the shell
const populateLimit = 8

// Install opens the static store and fills it with every shell resource.
// It is all-or-nothing: when any resource cannot be fetched, or is not
// fetched with a 2xx status, nothing is written and a *ShellPopulationError
// is returned.
func (w *Worker) Install(ctx context.Context, rt Runtime) error {
	rt.SkipWaiting()

	store, err := w.store(ctx, w.staticName)
	if err != nil {
		return fmt.Errorf("open %s: %w", w.staticName, err)
	}

	responses := make([]*cache.Response, len(w.manifest))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(populateLimit)
	for i, req := range w.manifest {
		g.Go(func() error {
			res, err := w.network.Fetch(gctx, req.Clone())
			if err != nil {
				return &ShellPopulationError{Resource: req.URL.String(), Err: err}
			}
			if res.StatusCode < 200 || res.StatusCode > 299 {
				return &ShellPopulationError{
					Resource: req.URL.String(),
					Err:      fmt.Errorf("unexpected status %d", res.StatusCode),
				}
			}
			responses[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		w.log.Error().Err(err).Msg("Could not populate shell")
		return err
	}

	for i, req := range w.manifest {
		if err := store.Put(ctx, req.Key(), responses[i]); err != nil {
			return &ShellPopulationError{Resource: req.URL.String(), Err: err}
		}
	}
	w.log.Info().Str("store", w.staticName).Msgf("Installed %d shell resources", len(w.manifest))
	return nil
}

// Activate enables navigation preload when the runtime offers it, deletes
// every store that does not belong to this generation and claims all clients.
func (w *Worker) Activate(ctx context.Context, rt Runtime) error {
	if err := rt.EnableNavigationPreload(ctx); err != nil {
		w.log.Debug().Err(err).Msg("Navigation preload not enabled")
	}

	if _, err := w.store(ctx, w.runtimeName); err != nil {
		return fmt.Errorf("open %s: %w", w.runtimeName, err)
	}
	names, err := w.storage.Names(ctx)
	if err != nil {
		return &GenerationCleanupError{Err: err}
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		if name == w.staticName || name == w.runtimeName {
			continue
		}
		g.Go(func() error {
			w.log.Debug().Str("store", name).Msg("Deleting stale store")
			if _, err := w.storage.Delete(gctx, name); err != nil {
				return &GenerationCleanupError{Store: name, Err: err}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		w.log.Error().Err(err).Msg("Could not clean up stale stores")
		return err
	}

	if err := rt.Claim(ctx); err != nil {
		return fmt.Errorf("claim clients: %w", err)
	}
	w.log.Info().Msg("Activated")
	return nil
}
