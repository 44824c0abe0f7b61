package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/always-cache/offline-cache/cache"
)

func TestInstallPopulatesShell(t *testing.T) {
	storage := cache.NewMemoryStorage()
	w := newTestWorker(t, "v1", storage, shellNetwork())
	rt := &fakeRuntime{}
	if err := w.Install(context.Background(), rt); err != nil {
		t.Fatal(err)
	}
	for _, path := range []string{"/", "/static/app.css", "/offline.html"} {
		res, ok := stored(t, storage, "static-v1", path)
		if !ok || len(res.Body) == 0 {
			t.Fatalf("Shell resource %s not stored", path)
		}
	}
	if !rt.skipWaiting {
		t.Fatal("Install did not ask to skip waiting")
	}
}

func TestInstallIsAllOrNothing(t *testing.T) {
	storage := cache.NewMemoryStorage()
	network := shellNetwork()
	network.down[scope+"/static/app.css"] = true
	w := newTestWorker(t, "v1", storage, network)

	err := w.Install(context.Background(), &fakeRuntime{})
	var popErr *ShellPopulationError
	if !errors.As(err, &popErr) {
		t.Fatalf("Expected ShellPopulationError, got %v", err)
	}
	if popErr.Resource != scope+"/static/app.css" {
		t.Fatalf("Failed resource is %s", popErr.Resource)
	}
	if !errors.Is(err, ErrNetworkUnavailable) {
		t.Fatalf("Cause is not network failure: %v", err)
	}
	for _, path := range []string{"/", "/offline.html"} {
		if _, ok := stored(t, storage, "static-v1", path); ok {
			t.Fatalf("Partial shell stored %s", path)
		}
	}
}

func TestInstallRejectsErrorStatus(t *testing.T) {
	storage := cache.NewMemoryStorage()
	network := shellNetwork()
	network.serveResponse("/static/app.css", &cache.Response{StatusCode: 500, Type: cache.ResponseTypeBasic})
	w := newTestWorker(t, "v1", storage, network)

	var popErr *ShellPopulationError
	if err := w.Install(context.Background(), &fakeRuntime{}); !errors.As(err, &popErr) {
		t.Fatalf("Expected ShellPopulationError, got %v", err)
	}
	if _, ok := stored(t, storage, "static-v1", "/"); ok {
		t.Fatal("Partial shell stored")
	}
}

func TestActivateDeletesStaleGenerations(t *testing.T) {
	ctx := context.Background()
	storage := cache.NewMemoryStorage()
	for _, name := range []string{"static-v1", "runtime-v1", "unrelated"} {
		storage.Open(ctx, name)
	}
	w := newTestWorker(t, "v2", storage, shellNetwork())
	rt := &fakeRuntime{}
	if err := w.Install(ctx, rt); err != nil {
		t.Fatal(err)
	}
	if err := w.Activate(ctx, rt); err != nil {
		t.Fatal(err)
	}
	names, _ := storage.Names(ctx)
	if len(names) != 2 {
		t.Fatalf("Stores after activation: %v", names)
	}
	for _, name := range names {
		if name != "static-v2" && name != "runtime-v2" {
			t.Fatalf("Stale store %s survived", name)
		}
	}
	if !rt.claimed || !rt.preload {
		t.Fatalf("Runtime not claimed (%v) or preload not enabled (%v)", rt.claimed, rt.preload)
	}
}

func TestActivateIgnoresPreloadFailure(t *testing.T) {
	w := newTestWorker(t, "v1", cache.NewMemoryStorage(), shellNetwork())
	rt := &fakeRuntime{preloadErr: ErrPreloadUnsupported}
	if err := w.Activate(context.Background(), rt); err != nil {
		t.Fatalf("Activation failed: %v", err)
	}
	if !rt.claimed {
		t.Fatal("Clients not claimed")
	}
}

type failingDeleteStorage struct {
	cache.Storage
}

func (s failingDeleteStorage) Delete(context.Context, string) (bool, error) {
	return false, errors.New("disk full")
}

func TestActivateCleanupFailure(t *testing.T) {
	ctx := context.Background()
	storage := failingDeleteStorage{cache.NewMemoryStorage()}
	storage.Open(ctx, "static-v1")
	w := newTestWorker(t, "v2", storage, shellNetwork())
	rt := &fakeRuntime{}

	err := w.Activate(ctx, rt)
	var cleanupErr *GenerationCleanupError
	if !errors.As(err, &cleanupErr) || cleanupErr.Store != "static-v1" {
		t.Fatalf("Expected GenerationCleanupError for static-v1, got %v", err)
	}
	if rt.claimed {
		t.Fatal("Clients claimed after failed cleanup")
	}
}

func TestActivateClaimFailure(t *testing.T) {
	w := newTestWorker(t, "v1", cache.NewMemoryStorage(), shellNetwork())
	claimErr := errors.New("no runtime")
	if err := w.Activate(context.Background(), &fakeRuntime{claimErr: claimErr}); !errors.Is(err, claimErr) {
		t.Fatalf("Expected claim error, got %v", err)
	}
}
