package worker

import (
	"context"

	"github.com/always-cache/offline-cache/cache"
)

type Strategy string

const (
	StrategyNetworkFirst         Strategy = "network-first"
	StrategyStaleWhileRevalidate Strategy = "stale-while-revalidate"
	StrategyNetworkFallback      Strategy = "network-fallback"
)

// Source tells where a served response came from.
type Source string

const (
	SourceNone    Source = ""
	SourceNetwork Source = "network"
	SourcePreload Source = "preload"
	SourceCache   Source = "cache"
	SourceOffline Source = "offline"
)

// Outcome is the result of handling one request.
// Response is nil only when neither the network, a store nor the offline
// document could provide one.
type Outcome struct {
	Response *cache.Response
	Source   Source
	Strategy Strategy
	// Store the response was served from.
	Store string
	// Stored is set when the network response was written to the runtime store
	// before it was returned.
	Stored bool
}

var revalidatedDestinations = map[Destination]bool{
	DestinationStyle:  true,
	DestinationScript: true,
	DestinationImage:  true,
	DestinationFont:   true,
}

// Classify picks the strategy for a request. The first match wins:
// navigations, then static asset destinations, then everything else.
func Classify(req *Request) Strategy {
	if req.IsNavigation() {
		return StrategyNetworkFirst
	}
	if revalidatedDestinations[req.Destination] {
		return StrategyStaleWhileRevalidate
	}
	return StrategyNetworkFallback
}

// Handle serves an intercepted request. Network failures never escape:
// every request resolves to a cached response, the network response or the
// offline document.
func (w *Worker) Handle(ctx context.Context, req *Request) Outcome {
	strategy := Classify(req)
	w.log.Trace().
		Str("key", req.Key()).
		Str("strategy", string(strategy)).
		Msg("Handling request")
	var out Outcome
	switch strategy {
	case StrategyNetworkFirst:
		out = w.networkFirst(ctx, req)
	case StrategyStaleWhileRevalidate:
		out = w.staleWhileRevalidate(ctx, req)
	default:
		out = w.networkFallback(ctx, req)
	}
	w.refreshAfterMutation(ctx, req, out)
	return out
}
