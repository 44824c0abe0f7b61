package worker

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/always-cache/offline-cache/cache"

	"github.com/rs/zerolog"
)

const (
	staticPrefix  = "static-"
	runtimePrefix = "runtime-"
)

type Config struct {
	// Version of this deployment. Both store names are derived from it.
	Version string
	// Scope is the URL that relative shell resources are resolved against.
	Scope url.URL
	// Resources that must be in the static store before install succeeds.
	Manifest []string
	// Resource served when a navigation can be served neither from the
	// network nor from a store. It is added to the manifest if missing.
	OfflineDocument string
	// Registry of named stores.
	Storage cache.Storage
	// Network used for all fetches.
	Network Network
	// Logger to use. A console logger is used if nil.
	Logger *zerolog.Logger
}

// Worker intercepts requests for one deployment generation.
type Worker struct {
	version     string
	staticName  string
	runtimeName string
	manifest    []*Request
	offline     *Request
	storage     cache.Storage
	network     Network
	log         zerolog.Logger
	background  *background

	mu     sync.Mutex
	stores map[string]cache.Store
}

// New validates the config and creates a worker. It does not touch storage.
func New(config Config) (*Worker, error) {
	if config.Version == "" {
		return nil, errors.New("worker version is required")
	}
	if config.Storage == nil || config.Network == nil {
		return nil, errors.New("worker storage and network are required")
	}
	if !config.Scope.IsAbs() {
		return nil, fmt.Errorf("worker scope %q is not absolute", config.Scope.String())
	}

	var logger zerolog.Logger
	if config.Logger == nil {
		logger = zerolog.New(zerolog.NewConsoleWriter())
	} else {
		logger = *config.Logger
	}
	logger = logger.With().Str("version", config.Version).Logger()

	w := &Worker{
		version:     config.Version,
		staticName:  staticPrefix + config.Version,
		runtimeName: runtimePrefix + config.Version,
		storage:     config.Storage,
		network:     config.Network,
		log:         logger,
		stores:      map[string]cache.Store{},
	}
	w.background = newBackground(w.log)

	seen := map[string]bool{}
	resources := append([]string{}, config.Manifest...)
	if config.OfflineDocument != "" {
		resources = append(resources, config.OfflineDocument)
	}
	for _, resource := range resources {
		req, err := w.resolve(config.Scope, resource)
		if err != nil {
			return nil, err
		}
		if seen[req.Key()] {
			continue
		}
		seen[req.Key()] = true
		w.manifest = append(w.manifest, req)
	}
	if config.OfflineDocument != "" {
		w.offline, _ = w.resolve(config.Scope, config.OfflineDocument)
	}
	return w, nil
}

func (w *Worker) resolve(scope url.URL, resource string) (*Request, error) {
	ref, err := url.Parse(resource)
	if err != nil {
		return nil, fmt.Errorf("shell resource %q: %w", resource, err)
	}
	req, err := NewRequest("GET", scope.ResolveReference(ref).String())
	if err != nil {
		return nil, err
	}
	req.Mode = ModeNoCORS
	if req.URL.Host == scope.Host && req.URL.Scheme == scope.Scheme {
		req.Mode = ModeSameOrigin
	}
	return req, nil
}

func (w *Worker) Version() string {
	return w.version
}

// StaticName is the name of the store holding the shell.
func (w *Worker) StaticName() string {
	return w.staticName
}

// RuntimeName is the name of the store filled while serving requests.
func (w *Worker) RuntimeName() string {
	return w.runtimeName
}

// Wait blocks until all background revalidations have finished
// or the context is done.
func (w *Worker) Wait(ctx context.Context) error {
	return w.background.wait(ctx)
}

// Stop cancels pending background work, e.g. delayed refreshes.
// Call Wait afterwards for it to return.
func (w *Worker) Stop() {
	w.background.stop()
}
