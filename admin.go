package offlinecache

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"

	cachekey "github.com/always-cache/offline-cache/pkg/cache-key"

	"github.com/go-chi/chi/v5"
)

// AdminPath is where the admin API is mounted by the command.
const AdminPath = "/.offline-cache"

type storedEntry struct {
	Method string `json:"method"`
	URL    string `json:"url"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// AdminRouter serves the registration status and the stored requests, and
// lets operators register and promote workers.
func (o *OfflineCache) AdminRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/status", o.handleStatus)
	r.Get("/stores", o.handleStores)
	r.Get("/stores/{name}", o.handleStore)
	r.Post("/register", o.handleRegister)
	r.Post("/promote", o.handlePromote)
	return r
}

func (o *OfflineCache) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, o.Status())
}

func (o *OfflineCache) handleStores(w http.ResponseWriter, r *http.Request) {
	names, err := o.storage.Names(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, names)
}

func (o *OfflineCache) handleStore(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	names, err := o.storage.Names(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{err.Error()})
		return
	}
	// opening a store creates it
	if !slices.Contains(names, name) {
		writeJSON(w, http.StatusNotFound, errorResponse{"no store " + name})
		return
	}
	store, err := o.storage.Open(r.Context(), name)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{err.Error()})
		return
	}
	entries := []storedEntry{}
	err = store.Keys(r.Context(), func(key string) {
		method, u, err := cachekey.GetRequestFromKey(key)
		if err != nil {
			o.log.Warn().Err(err).Str("key", key).Msg("Skipping malformed key")
			return
		}
		entries = append(entries, storedEntry{Method: method, URL: u.String()})
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (o *OfflineCache) handleRegister(w http.ResponseWriter, r *http.Request) {
	version := r.URL.Query().Get("version")
	if version == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{"version is required"})
		return
	}
	// the lifecycle outlives the admin request
	task := o.Register(context.WithoutCancel(r.Context()), version)
	o.writeTask(w, r, task)
}

func (o *OfflineCache) handlePromote(w http.ResponseWriter, r *http.Request) {
	task := o.Promote(context.WithoutCancel(r.Context()))
	o.writeTask(w, r, task)
}

func (o *OfflineCache) writeTask(w http.ResponseWriter, r *http.Request, task *Task) {
	if err := task.Wait(r.Context()); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrNothingWaiting) {
			status = http.StatusConflict
		}
		writeJSON(w, status, errorResponse{err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, o.Status())
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
