package worker

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/always-cache/offline-cache/cache"
)

func TestMutationRefreshesStoredResponses(t *testing.T) {
	ctx := context.Background()
	storage := cache.NewMemoryStorage()
	network := shellNetwork()
	w := installed(t, "v1", storage, network)

	network.serve("/cart", "empty")
	network.serve("/products", "list")
	w.Handle(ctx, request(t, "/cart", ModeNavigate, DestinationDocument))
	waitBackground(t, w)

	network.serve("/cart", "1 item")
	network.serveResponse("/cart/add", &cache.Response{
		StatusCode: http.StatusSeeOther,
		Header:     http.Header{"Cache-Update": {"/cart, /products"}, "Location": {"/cart"}},
		Type:       cache.ResponseTypeBasic,
		URL:        scope + "/cart/add",
	})
	req := request(t, "/cart/add", ModeSameOrigin, DestinationEmpty)
	req.Method = http.MethodPost
	if out := w.Handle(ctx, req); out.Response.StatusCode != http.StatusSeeOther {
		t.Fatalf("Got %+v", out)
	}
	waitBackground(t, w)

	if res, ok := stored(t, storage, "runtime-v1", "/cart"); !ok || string(res.Body) != "1 item" {
		t.Fatal("Stored cart was not refreshed")
	}
	// only stored responses are refreshed
	if _, ok := stored(t, storage, "runtime-v1", "/products"); ok {
		t.Fatal("Products were stored")
	}
	if n := network.callCount("/products"); n != 0 {
		t.Fatalf("Products fetched %d times", n)
	}
}

func TestFailedMutationRefreshesNothing(t *testing.T) {
	ctx := context.Background()
	storage := cache.NewMemoryStorage()
	network := shellNetwork()
	w := installed(t, "v1", storage, network)

	network.serve("/cart", "empty")
	w.Handle(ctx, request(t, "/cart", ModeNavigate, DestinationDocument))
	waitBackground(t, w)

	network.serve("/cart", "changed")
	network.serveResponse("/cart/add", &cache.Response{
		StatusCode: http.StatusInternalServerError,
		Header:     http.Header{"Cache-Update": {"/cart"}},
		Type:       cache.ResponseTypeBasic,
		URL:        scope + "/cart/add",
	})
	req := request(t, "/cart/add", ModeSameOrigin, DestinationEmpty)
	req.Method = http.MethodPost
	w.Handle(ctx, req)
	waitBackground(t, w)

	if res, _ := stored(t, storage, "runtime-v1", "/cart"); string(res.Body) != "empty" {
		t.Fatalf("Cart is %s", res.Body)
	}
}

func TestStopCancelsDelayedRefresh(t *testing.T) {
	ctx := context.Background()
	storage := cache.NewMemoryStorage()
	network := shellNetwork()
	w := installed(t, "v1", storage, network)

	network.serve("/cart", "empty")
	w.Handle(ctx, request(t, "/cart", ModeNavigate, DestinationDocument))
	waitBackground(t, w)

	network.serve("/cart", "1 item")
	network.serveResponse("/cart/add", &cache.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Cache-Update": {"/cart; delay=3600"}},
		Type:       cache.ResponseTypeBasic,
		URL:        scope + "/cart/add",
	})
	req := request(t, "/cart/add", ModeSameOrigin, DestinationEmpty)
	req.Method = http.MethodPost
	w.Handle(ctx, req)

	w.Stop()
	waitCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := w.Wait(waitCtx); err != nil {
		t.Fatalf("Delayed refresh kept running: %v", err)
	}
	if res, _ := stored(t, storage, "runtime-v1", "/cart"); string(res.Body) != "empty" {
		t.Fatalf("Cart is %s", res.Body)
	}
}
