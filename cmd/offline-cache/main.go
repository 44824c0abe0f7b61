package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	offlinecache "github.com/always-cache/offline-cache"
	"github.com/always-cache/offline-cache/cache"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// CLI flags
	configFilenameFlag string
	portFlag           int
	originFlag         string
	addrFlag           string
	hostFlag           string
	deployVersionFlag  string
	providerFlag       string
	dbFilenameFlag     string
	verbosityTraceFlag bool
	logFilenameFlag    string

	// this is set by goreleaser
	version string
)

func init() {
	flag.StringVar(&configFilenameFlag, "config", "", "Path to config file")
	flag.StringVar(&originFlag, "origin", "", "Origin URL to proxy to (overrides addr and config)")
	flag.StringVar(&addrFlag, "addr", "", "Origin IP address to proxy to")
	flag.StringVar(&hostFlag, "host", "", "Hostname of origin")
	flag.IntVar(&portFlag, "port", 0, "Port to listen on (default 8080)")
	flag.StringVar(&deployVersionFlag, "deploy", "", "Deployment version to register (overrides config)")
	flag.StringVar(&providerFlag, "storage", "", "Storage provider: memory, sqlite or leveldb (overrides config)")
	flag.StringVar(&dbFilenameFlag, "db", "", "Storage file or directory (overrides config)")
	flag.BoolVar(&verbosityTraceFlag, "vv", false, "Verbosity: trace logging")
	flag.StringVar(&logFilenameFlag, "log-file", "", "Log file to use (in addition to stdout)")

	if version == "" {
		version = "DEV"
	}
}

func main() {
	flag.Parse()

	config, err := loadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load config")
	}

	logger, err := offlinecache.NewLogger(config.Log, os.Stdout)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not set up logging")
	}
	log.Logger = logger.With().Str("build", version).Logger()

	storage, err := cache.Open(config.Storage.Provider, config.Storage.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not open storage")
	}

	hostConfig, err := config.HostConfig(storage)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid config")
	}
	hostConfig.Logger = &log.Logger
	ocache, err := offlinecache.New(hostConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not create offline cache")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go register(ctx, ocache, config.Version)
	go reloadOnHangup(ctx, ocache, config.Version)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Mount(offlinecache.AdminPath, ocache.AdminRouter())
	r.Handle("/*", ocache)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", config.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ConnContext:       ocache.ConnContext,
		ConnState:         ocache.ConnState,
	}

	go func() {
		log.Info().Msgf("Serving port %v for %s (origin %s, hostname '%s')", config.Port, ocache.Status().Scope, hostConfig.OriginURL.String(), hostConfig.OriginHost)
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Server error")
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Could not shut down server")
	}
	if err := ocache.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Could not close offline cache")
	}
}

// loadConfig reads the config file and environment, then applies the flags.
func loadConfig() (offlinecache.FileConfig, error) {
	config, err := offlinecache.LoadConfig(configFilenameFlag)
	if err != nil {
		return config, err
	}
	if originFlag != "" {
		config.Origin = originFlag
	} else if addrFlag != "" {
		config.Origin = (&url.URL{Scheme: "https", Host: addrFlag}).String()
	}
	if hostFlag != "" {
		config.Host = hostFlag
	}
	if portFlag != 0 {
		config.Port = portFlag
	}
	if deployVersionFlag != "" {
		config.Version = deployVersionFlag
	}
	if providerFlag != "" {
		config.Storage.Provider = providerFlag
	}
	if dbFilenameFlag != "" {
		config.Storage.Path = dbFilenameFlag
	}
	if verbosityTraceFlag {
		config.Log.Level = zerolog.TraceLevel.String()
	}
	if logFilenameFlag != "" {
		config.Log.File = logFilenameFlag
	}
	return config, config.Validate()
}

func register(ctx context.Context, ocache *offlinecache.OfflineCache, deployVersion string) {
	if err := ocache.Register(ctx, deployVersion).Wait(ctx); err != nil {
		log.Error().Err(err).Str("version", deployVersion).Msg("Registration failed")
		return
	}
	log.Info().Str("version", deployVersion).Msg("Registered")
}

// reloadOnHangup registers the configured version again on SIGHUP,
// e.g. after a deploy changed it.
func reloadOnHangup(ctx context.Context, ocache *offlinecache.OfflineCache, current string) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
		}
		config, err := loadConfig()
		if err != nil {
			log.Error().Err(err).Msg("Could not reload config")
			continue
		}
		if config.Version == current {
			log.Info().Str("version", current).Msg("Version unchanged")
			continue
		}
		register(ctx, ocache, config.Version)
		current = config.Version
	}
}
