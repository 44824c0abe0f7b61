package worker

import (
	"context"
	"fmt"

	"github.com/always-cache/offline-cache/cache"
)

// Network performs network calls for intercepted requests.
// Implementations return an error wrapping ErrNetworkUnavailable when the
// origin cannot be reached. Any response received, whatever its status, is a success.
type Network interface {
	Fetch(ctx context.Context, req *Request) (*cache.Response, error)
}

// NetworkFunc adapts a function to the Network interface.
type NetworkFunc func(ctx context.Context, req *Request) (*cache.Response, error)

func (f NetworkFunc) Fetch(ctx context.Context, req *Request) (*cache.Response, error) {
	return f(ctx, req)
}

// Runtime is the hosting runtime a worker is installed into.
type Runtime interface {
	// SkipWaiting asks the runtime to activate the worker as soon as it is
	// installed, without waiting for clients of the previous worker to go away.
	SkipWaiting()
	// EnableNavigationPreload asks the runtime to start navigation fetches
	// before handing the request to the worker.
	EnableNavigationPreload(ctx context.Context) error
	// Claim makes the worker control all clients, including those that
	// connected before it was activated.
	Claim(ctx context.Context) error
}

// Preload is a network call started by the runtime for a navigation request
// before the request was handed to the worker.
type Preload struct {
	done chan struct{}
	res  *cache.Response
	err  error
}

// StartPreload starts fetching the request in the background.
func StartPreload(ctx context.Context, network Network, req *Request) *Preload {
	p := &Preload{done: make(chan struct{})}
	go func() {
		defer close(p.done)
		p.res, p.err = network.Fetch(ctx, req)
	}()
	return p
}

// ResolvedPreload returns a preload that already finished with the given result.
func ResolvedPreload(res *cache.Response, err error) *Preload {
	p := &Preload{done: make(chan struct{}), res: res, err: err}
	close(p.done)
	return p
}

// Done is closed when the preload has finished.
func (p *Preload) Done() <-chan struct{} {
	return p.done
}

// Wait returns the preloaded response once it is available.
// A preload that never produced a response returns (nil, nil).
func (p *Preload) Wait(ctx context.Context) (*cache.Response, error) {
	select {
	case <-p.done:
		return p.res, p.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrNetworkUnavailable, ctx.Err())
	}
}
