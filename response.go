package offlinecache

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/always-cache/offline-cache/cache"
	requestrules "github.com/always-cache/offline-cache/pkg/request-rules"
	"github.com/always-cache/offline-cache/rfc9211"
	"github.com/always-cache/offline-cache/worker"
)

// writeOutcome sends the response a worker resolved to the client.
// Requests nothing could be found for get a 504, as a browser would report
// a failed fetch.
func (o *OfflineCache) writeOutcome(w http.ResponseWriter, r *http.Request, rule *requestrules.Rule, out worker.Outcome, clientID string) {
	cs := cacheStatus(out)
	if out.Response == nil {
		w.Header().Set("Cache-Status", cs.String())
		rule.ApplyHeaders(w.Header())
		http.Error(w, http.StatusText(http.StatusGatewayTimeout), http.StatusGatewayTimeout)
		o.logRequest(r, clientID, out.Strategy, cs, http.StatusGatewayTimeout)
		return
	}
	o.sendResponse(w, r, out.Response, rule, cs)
	o.logRequest(r, clientID, out.Strategy, cs, out.Response.StatusCode)
}

func cacheStatus(out worker.Outcome) rfc9211.CacheStatus {
	cs := rfc9211.CacheStatus{}
	switch out.Source {
	case worker.SourceCache:
		cs.Hit()
		cs.Detail = out.Store
	case worker.SourceOffline:
		cs.Hit()
		cs.Detail = "offline"
	case worker.SourceNetwork:
		cs.Forward(rfc9211.FwdReasonUriMiss)
		cs.FwdStatus = out.Response.StatusCode
		cs.Stored = out.Stored
	case worker.SourcePreload:
		// the runtime fetched it before the worker could look at the request
		cs.Forward(rfc9211.FwdReasonRequest)
		cs.FwdStatus = out.Response.StatusCode
		cs.Detail = "preload"
	default:
		cs.Forward(rfc9211.FwdReasonMiss)
		cs.Detail = "offline"
	}
	return cs
}

// passthrough sends the request straight to the network, without any worker.
// A navigation preload already started for the request is used instead.
func (o *OfflineCache) passthrough(w http.ResponseWriter, r *http.Request, req *worker.Request, rule *requestrules.Rule) {
	cs := rfc9211.CacheStatus{}
	cs.Forward(rfc9211.FwdReasonBypass)
	var res *cache.Response
	var err error
	if req.Preload != nil {
		res, err = req.Preload.Wait(r.Context())
	}
	if res == nil && err == nil {
		res, err = o.network.Fetch(r.Context(), req)
	}
	if err != nil {
		if !errors.Is(err, worker.ErrNetworkUnavailable) {
			o.log.Error().Err(err).Str("url", req.URL.String()).Msg("Could not fetch from network")
		}
		w.Header().Set("Cache-Status", cs.String())
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		o.logRequest(r, "", "", cs, http.StatusBadGateway)
		return
	}
	cs.FwdStatus = res.StatusCode
	o.sendResponse(w, r, res, rule, cs)
	o.logRequest(r, "", "", cs, res.StatusCode)
}

func (o *OfflineCache) sendResponse(w http.ResponseWriter, r *http.Request, res *cache.Response, rule *requestrules.Rule, cs rfc9211.CacheStatus) {
	copyHeader(w.Header(), res.Header)
	rule.ApplyHeaders(w.Header())
	w.Header().Add("Cache-Status", cs.String())
	if !bodyAllowed(res.StatusCode) {
		w.WriteHeader(res.StatusCode)
		return
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Body)))
	w.WriteHeader(res.StatusCode)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(res.Body); err != nil {
		o.log.Error().Err(err).Msg("Could not write response body to client")
	}
	o.log.Trace().Msgf("Wrote body (%d bytes)", len(res.Body))
}

func bodyAllowed(statusCode int) bool {
	return statusCode >= 200 && statusCode != http.StatusNoContent && statusCode != http.StatusNotModified
}

func (o *OfflineCache) logRequest(r *http.Request, clientID string, strategy worker.Strategy, cs rfc9211.CacheStatus, status int) {
	isHit := 0
	if cs.Status == rfc9211.StatusHit {
		isHit = 1
	}
	o.log.Debug().
		Str("method", r.Method).
		Str("url", r.URL.String()).
		Str("sourceIp", getRequestSourceIp(r)).
		Str("client", clientID).
		Str("strategy", string(strategy)).
		Int("status", status).
		Str("fwd", string(cs.FwdReason)).
		Bool("stored", cs.Stored).
		Int("hit", isHit).
		Msg("Sending response to client")
}

func getRequestSourceIp(r *http.Request) string {
	// RemoteAddr is in the format:
	// 1.2.3.4:10000 for ipv4
	// [1:2:3]:10000 for ipv6
	ipAndPort := r.RemoteAddr
	portSepIdx := strings.LastIndex(ipAndPort, ":")
	if portSepIdx < 0 {
		return ipAndPort
	}
	return ipAndPort[:portSepIdx]
}

func copyHeader(dst, src http.Header) {
	for k, vv := range src {
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
}
