package offlinecache

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"

	requestrules "github.com/always-cache/offline-cache/pkg/request-rules"
	"github.com/always-cache/offline-cache/worker"
)

// Largest request body read into memory for forwarding.
const maxRequestBody = 10 << 20

var errRequestTooLarge = errors.New("request body too large")

var extensionDestinations = map[string]worker.Destination{
	".css":   worker.DestinationStyle,
	".js":    worker.DestinationScript,
	".mjs":   worker.DestinationScript,
	".png":   worker.DestinationImage,
	".jpg":   worker.DestinationImage,
	".jpeg":  worker.DestinationImage,
	".gif":   worker.DestinationImage,
	".webp":  worker.DestinationImage,
	".avif":  worker.DestinationImage,
	".svg":   worker.DestinationImage,
	".ico":   worker.DestinationImage,
	".woff":  worker.DestinationFont,
	".woff2": worker.DestinationFont,
	".ttf":   worker.DestinationFont,
	".otf":   worker.DestinationFont,
	".eot":   worker.DestinationFont,
}

// newRequest maps an incoming HTTP request to an intercepted request and
// finds the rule it matches.
func (o *OfflineCache) newRequest(r *http.Request) (*worker.Request, *requestrules.Rule, error) {
	var body []byte
	if r.Body != nil && r.Method != http.MethodGet && r.Method != http.MethodHead {
		b, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody+1))
		if err != nil {
			return nil, nil, err
		}
		if len(b) > maxRequestBody {
			return nil, nil, errRequestTooLarge
		}
		body = b
	}

	u := o.requestURL(r)
	req := &worker.Request{
		Method:      r.Method,
		URL:         u,
		Header:      r.Header.Clone(),
		Body:        body,
		Mode:        o.requestMode(r, u),
		Destination: requestDestination(r, u),
	}

	rule := o.rules.Find(r.Method, u)
	if rule != nil {
		if rule.Navigate {
			req.Mode = worker.ModeNavigate
		}
		if rule.Destination != "" {
			req.Destination = worker.Destination(rule.Destination)
		}
	}
	return req, rule, nil
}

// requestURL is the absolute URL of the request. Requests in absolute form
// (forward proxy) keep their URL, all others are resolved against the scope.
func (o *OfflineCache) requestURL(r *http.Request) *url.URL {
	if r.URL.IsAbs() {
		u := *r.URL
		return &u
	}
	u := o.scope
	u.Path = r.URL.Path
	u.RawPath = r.URL.RawPath
	u.RawQuery = r.URL.RawQuery
	return &u
}

func (o *OfflineCache) requestMode(r *http.Request, u *url.URL) worker.Mode {
	switch mode := worker.Mode(r.Header.Get("Sec-Fetch-Mode")); mode {
	case worker.ModeNavigate, worker.ModeSameOrigin, worker.ModeCORS, worker.ModeNoCORS:
		return mode
	}
	// clients that do not send fetch metadata, e.g. older browsers
	if r.Method == http.MethodGet && r.Header.Get("Sec-Fetch-Dest") == "" && acceptsHTML(r.Header) {
		return worker.ModeNavigate
	}
	if r.Header.Get("Origin") != "" {
		return worker.ModeCORS
	}
	if u.Scheme == o.scope.Scheme && u.Host == o.scope.Host {
		return worker.ModeSameOrigin
	}
	return worker.ModeNoCORS
}

func requestDestination(r *http.Request, u *url.URL) worker.Destination {
	if dest := r.Header.Get("Sec-Fetch-Dest"); dest != "" && dest != "empty" {
		return worker.Destination(dest)
	}
	return extensionDestinations[strings.ToLower(path.Ext(u.Path))]
}

func acceptsHTML(header http.Header) bool {
	for _, accept := range header.Values("Accept") {
		for _, part := range strings.Split(accept, ",") {
			mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(part))
			if err == nil && mediaType == "text/html" {
				return true
			}
		}
	}
	return false
}

// preloadRequest is the request the runtime sends for a navigation preload.
func preloadRequest(req *worker.Request) *worker.Request {
	preload := req.Clone()
	preload.Header.Set("Service-Worker-Navigation-Preload", "true")
	return preload
}
