package worker

import (
	"context"
	"net/http"
	"time"

	cacheupdate "github.com/always-cache/offline-cache/pkg/cache-update"
)

// Longest delay a response can ask a refresh to wait for.
const maxRefreshDelay = time.Minute

// refreshAfterMutation refreshes the stored responses that a successful
// state-changing request made stale: its own target and the resources the
// response lists in Cache-Update. Only responses already in the runtime store
// are refreshed.
func (w *Worker) refreshAfterMutation(ctx context.Context, req *Request, out Outcome) {
	if out.Source != SourceNetwork && out.Source != SourcePreload {
		return
	}
	updates := cacheupdate.GetCacheUpdates(req.Method, req.URL, out.Response.StatusCode, out.Response.Header)
	for _, update := range updates {
		refresh := &Request{
			Method: http.MethodGet,
			URL:    update.URL,
			Header: http.Header{},
			Mode:   ModeSameOrigin,
		}
		delay := min(update.Delay, maxRefreshDelay)
		w.background.spawn(ctx, "refresh "+refresh.Key(), func(ctx context.Context) error {
			if delay > 0 {
				timer := time.NewTimer(delay)
				defer timer.Stop()
				select {
				case <-timer.C:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return w.refresh(ctx, refresh)
		})
	}
}

func (w *Worker) refresh(ctx context.Context, req *Request) error {
	if _, _, err := w.match(ctx, req, w.runtimeName); err != nil {
		return nil
	}
	res, err := w.network.Fetch(ctx, req)
	if err != nil {
		return err
	}
	if cacheable(res) {
		w.put(ctx, req, res)
	}
	return nil
}
