package worker

import (
	"errors"
	"fmt"
)

var (
	// ErrNetworkUnavailable marks connectivity and timeout failures of a network call.
	// HTTP error statuses are responses, not failures.
	ErrNetworkUnavailable = errors.New("network unavailable")
	// ErrCacheMiss means a lookup found nothing; the caller tries the next source.
	ErrCacheMiss = errors.New("cache miss")
	// ErrPreloadUnsupported is returned by runtimes that cannot preload navigations.
	ErrPreloadUnsupported = errors.New("navigation preload not supported")
)

// ShellPopulationError fails an install when a shell resource cannot be fetched.
type ShellPopulationError struct {
	Resource string
	Err      error
}

func (e *ShellPopulationError) Error() string {
	return fmt.Sprintf("populate shell: %s: %v", e.Resource, e.Err)
}

func (e *ShellPopulationError) Unwrap() error {
	return e.Err
}

// GenerationCleanupError fails an activation when a stale store cannot be deleted.
type GenerationCleanupError struct {
	Store string
	Err   error
}

func (e *GenerationCleanupError) Error() string {
	return fmt.Sprintf("delete store %s: %v", e.Store, e.Err)
}

func (e *GenerationCleanupError) Unwrap() error {
	return e.Err
}
