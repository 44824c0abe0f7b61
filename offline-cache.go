package offlinecache

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/always-cache/offline-cache/cache"
	fetcher "github.com/always-cache/offline-cache/pkg/origin-fetcher"
	requestrules "github.com/always-cache/offline-cache/pkg/request-rules"
	"github.com/always-cache/offline-cache/worker"

	"github.com/rs/zerolog"
)

type Config struct {
	// Storage for the generation stores.
	Storage cache.Storage
	// URL of the origin server.
	// Origins with paths are not supported.
	OriginURL url.URL
	// Hostname to use for HTTP requests and TLS negotiation.
	// Use if needed if e.g. the origin URL is just an IP address.
	OriginHost string
	// Public URL the intercepted requests are scoped to.
	// Defaults to the origin URL, with OriginHost as host if set.
	Scope *url.URL
	// Application shell resources, relative to the scope.
	Manifest []string
	// Document served to navigations when offline.
	OfflineDocument string
	// Allow workers to enable navigation preload.
	NavigationPreload bool
	// Rules adjusting how requests are classified and served.
	Rules requestrules.Rules
	// Timeout of a network call. Defaults to fetcher.DefaultTimeout.
	FetchTimeout time.Duration
	// Optional in-process origin. Requests are served by it instead of OriginURL.
	Next http.Handler
	// Optional network, overriding both OriginURL and Next.
	Network worker.Network
	// Logger to use. A console logger is used if nil.
	Logger *zerolog.Logger
}

// OfflineCache hosts the worker generations and routes the requests of
// its clients to their controlling worker.
type OfflineCache struct {
	scope             url.URL
	manifest          []string
	offlineDocument   string
	navigationPreload bool
	rules             requestrules.Rules
	storage           cache.Storage
	network           worker.Network
	log               zerolog.Logger

	mu          sync.Mutex
	nextID      uint64
	installing  *generation
	waiting     *generation
	active      *generation
	claimed     *generation
	generations []*generation
	clients     map[net.Conn]*client
}

// New creates the host. No worker is registered until Register is called.
func New(config Config) (*OfflineCache, error) {
	var logger zerolog.Logger
	if config.Logger == nil {
		logger = zerolog.New(zerolog.NewConsoleWriter())
	} else {
		logger = *config.Logger
	}
	if config.Storage == nil {
		return nil, errors.New("storage is required")
	}

	var scope url.URL
	if config.Scope != nil {
		scope = *config.Scope
	} else {
		scope = url.URL{Scheme: config.OriginURL.Scheme, Host: config.OriginURL.Host}
		if config.OriginHost != "" {
			scope.Host = config.OriginHost
		}
	}
	if scope.Scheme == "" || scope.Host == "" {
		return nil, errors.New("origin or scope url is required")
	}
	scope.Path = ""
	scope.RawQuery = ""
	scope.Fragment = ""

	logger = logger.With().
		Str("scope", scope.String()).
		Logger()

	network := config.Network
	switch {
	case network != nil:
	case config.Next != nil:
		network = fetcher.NewHandler(config.Next)
	default:
		network = fetcher.New(fetcher.Config{
			Scope:      scope,
			OriginURL:  config.OriginURL,
			OriginHost: config.OriginHost,
			Timeout:    config.FetchTimeout,
			Logger:     &logger,
		})
	}

	return &OfflineCache{
		scope:             scope,
		manifest:          config.Manifest,
		offlineDocument:   config.OfflineDocument,
		navigationPreload: config.NavigationPreload,
		rules:             config.Rules,
		storage:           config.Storage,
		network:           network,
		log:               logger,
		clients:           make(map[net.Conn]*client),
	}, nil
}

// ServeHTTP implements the http.Handler interface.
func (o *OfflineCache) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req, rule, err := o.newRequest(r)
	if errors.Is(err, errRequestTooLarge) {
		o.log.Warn().Str("url", r.URL.String()).Msg("Request body too large")
		http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
		return
	}
	if err != nil {
		o.log.Error().Err(err).Msg("Could not read request")
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if rule != nil && rule.Bypass {
		o.passthrough(w, r, req, rule)
		return
	}

	g, clientID := o.controllerFor(r.Context())
	if g == nil {
		o.passthrough(w, r, req, rule)
		return
	}
	if req.IsNavigation() && g.preloadEnabled() {
		req.Preload = worker.StartPreload(r.Context(), o.network, preloadRequest(req))
	}
	// requests of a client whose worker is still activating wait for it.
	// The preload keeps running meanwhile and serves the request if activation fails.
	if !g.ready(r.Context()) {
		o.passthrough(w, r, req, rule)
		return
	}

	out := g.worker.Handle(r.Context(), req)
	o.writeOutcome(w, r, rule, out, clientID)
}

// Close cancels the pending background work of all workers, waits for it
// to return and closes the storage.
func (o *OfflineCache) Close(ctx context.Context) error {
	o.mu.Lock()
	for _, g := range o.generations {
		g.worker.Stop()
	}
	o.mu.Unlock()
	if err := o.Wait(ctx); err != nil {
		return err
	}
	return o.storage.Close()
}

// Wait waits for the background work of all workers, e.g. revalidations.
func (o *OfflineCache) Wait(ctx context.Context) error {
	o.mu.Lock()
	generations := append([]*generation(nil), o.generations...)
	o.mu.Unlock()
	for _, g := range generations {
		if err := g.worker.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

type WorkerStatus struct {
	Version string `json:"version"`
	State   State  `json:"state"`
	Static  string `json:"staticStore"`
	Runtime string `json:"runtimeStore"`
	Preload bool   `json:"navigationPreload"`
}

type Status struct {
	Scope      string        `json:"scope"`
	Installing *WorkerStatus `json:"installing,omitempty"`
	Waiting    *WorkerStatus `json:"waiting,omitempty"`
	Active     *WorkerStatus `json:"active,omitempty"`
	Clients    int           `json:"clients"`
	Controlled int           `json:"controlled"`
}

// Status returns a snapshot of the registration.
func (o *OfflineCache) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := Status{
		Scope:      o.scope.String(),
		Installing: o.installing.status(),
		Waiting:    o.waiting.status(),
		Active:     o.active.status(),
		Clients:    len(o.clients),
	}
	for _, c := range o.clients {
		if c.controller != nil {
			s.Controlled++
		}
	}
	return s
}

func (g *generation) status() *WorkerStatus {
	if g == nil {
		return nil
	}
	return &WorkerStatus{
		Version: g.worker.Version(),
		State:   g.state,
		Static:  g.worker.StaticName(),
		Runtime: g.worker.RuntimeName(),
		Preload: g.preload,
	}
}
