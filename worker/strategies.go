package worker

import (
	"context"
	"errors"
	"net/http"

	"github.com/always-cache/offline-cache/cache"
)

// cacheable reports whether a network response may be written to the runtime store.
// Opaque responses are never stored since their body cannot be safely replayed.
func cacheable(res *cache.Response) bool {
	return res != nil &&
		res.StatusCode == http.StatusOK &&
		(res.Type == cache.ResponseTypeBasic || res.Type == cache.ResponseTypeCORS)
}

// networkFirst serves navigations: preload, then network, then stores, then
// the offline document. A preload is never discarded for a fresh fetch.
func (w *Worker) networkFirst(ctx context.Context, req *Request) Outcome {
	out := Outcome{Strategy: StrategyNetworkFirst}
	if req.Preload != nil {
		res, err := req.Preload.Wait(ctx)
		if err != nil {
			w.log.Debug().Err(err).Str("key", req.Key()).Msg("Preload failed")
			return w.storesOrOffline(ctx, req, out)
		}
		if res != nil {
			out.Response = res
			out.Source = SourcePreload
			return out
		}
	}

	res, err := w.network.Fetch(ctx, req)
	if err != nil {
		w.log.Debug().Err(err).Str("key", req.Key()).Msg("Network failed")
		return w.storesOrOffline(ctx, req, out)
	}
	out.Response = res
	out.Source = SourceNetwork
	if cacheable(res) {
		out.Stored = w.put(ctx, req, res)
	}
	return out
}

type revalidation struct {
	res    *cache.Response
	stored bool
}

// staleWhileRevalidate serves assets from the runtime store and refreshes the
// entry in the background. A cache hit never waits for the network.
func (w *Worker) staleWhileRevalidate(ctx context.Context, req *Request) Outcome {
	out := Outcome{Strategy: StrategyStaleWhileRevalidate}
	cached, _, err := w.match(ctx, req, w.runtimeName)

	updated := make(chan revalidation, 1)
	bgReq := req.Clone()
	w.background.spawn(ctx, "revalidate "+req.Key(), func(ctx context.Context) error {
		res, err := w.network.Fetch(ctx, bgReq)
		if err != nil {
			updated <- revalidation{}
			return err
		}
		r := revalidation{res: res}
		if cacheable(res) {
			r.stored = w.put(ctx, bgReq, res)
		}
		updated <- r
		return nil
	})

	if err == nil {
		out.Response = cached
		out.Source = SourceCache
		out.Store = w.runtimeName
		return out
	}

	select {
	case r := <-updated:
		if r.res != nil {
			out.Response = r.res
			out.Source = SourceNetwork
			out.Stored = r.stored
			return out
		}
	case <-ctx.Done():
		// the client is gone, the revalidation carries on without it
		return out
	}
	return w.offlineDocument(ctx, out)
}

// networkFallback serves everything else: network, then any store.
// Nothing is written.
func (w *Worker) networkFallback(ctx context.Context, req *Request) Outcome {
	out := Outcome{Strategy: StrategyNetworkFallback}
	res, err := w.network.Fetch(ctx, req)
	if err == nil {
		out.Response = res
		out.Source = SourceNetwork
		return out
	}
	w.log.Debug().Err(err).Str("key", req.Key()).Msg("Network failed")
	if cached, name, err := w.match(ctx, req, w.staticName, w.runtimeName); err == nil {
		out.Response = cached
		out.Source = SourceCache
		out.Store = name
	}
	return out
}

func (w *Worker) storesOrOffline(ctx context.Context, req *Request, out Outcome) Outcome {
	if cached, name, err := w.match(ctx, req, w.staticName, w.runtimeName); err == nil {
		out.Response = cached
		out.Source = SourceCache
		out.Store = name
		return out
	}
	return w.offlineDocument(ctx, out)
}

func (w *Worker) offlineDocument(ctx context.Context, out Outcome) Outcome {
	if w.offline == nil {
		return out
	}
	if res, _, err := w.match(ctx, w.offline, w.staticName); err == nil {
		out.Response = res
		out.Source = SourceOffline
		out.Store = w.staticName
	} else {
		w.log.Error().Err(err).Msg("Offline document missing from shell")
	}
	return out
}

// match looks the request up in the given stores, in order, and returns the
// first hit with the name of its store. It returns ErrCacheMiss when no store holds it.
func (w *Worker) match(ctx context.Context, req *Request, names ...string) (*cache.Response, string, error) {
	key := req.Key()
	for _, name := range names {
		store, err := w.store(ctx, name)
		if err != nil {
			w.log.Error().Err(err).Str("store", name).Msg("Could not open store")
			continue
		}
		res, ok, err := store.Get(ctx, key)
		if err != nil {
			w.log.Error().Err(err).Str("store", name).Str("key", key).Msg("Could not retrieve from store")
			continue
		}
		if ok {
			w.log.Trace().Str("store", name).Str("key", key).Msg("Found stored response")
			return res, name, nil
		}
	}
	return nil, "", ErrCacheMiss
}

// put writes a copy of the response to the runtime store and reports success.
// Only GET requests are ever stored.
func (w *Worker) put(ctx context.Context, req *Request, res *cache.Response) bool {
	if req.Method != http.MethodGet {
		return false
	}
	key := req.Key()
	store, err := w.store(ctx, w.runtimeName)
	if err != nil {
		w.log.Error().Err(err).Str("store", w.runtimeName).Msg("Could not open store")
		return false
	}
	if err := store.Put(ctx, key, res.Clone()); errors.Is(err, cache.ErrStoreDeleted) {
		w.log.Debug().Str("store", w.runtimeName).Str("key", key).Msg("Store collected, not writing")
		return false
	} else if err != nil {
		w.log.Error().Err(err).Str("store", w.runtimeName).Str("key", key).Msg("Could not write to store")
		return false
	}
	w.log.Trace().Str("store", w.runtimeName).Str("key", key).Msg("Wrote to store")
	return true
}

// store returns the worker's handle for a store, opening it on first use.
// Handles are kept so that a collected generation is never recreated.
func (w *Worker) store(ctx context.Context, name string) (cache.Store, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if s, ok := w.stores[name]; ok {
		return s, nil
	}
	s, err := w.storage.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	w.stores[name] = s
	return s, nil
}
