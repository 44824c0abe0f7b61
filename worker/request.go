package worker

import (
	"fmt"
	"net/http"
	"net/url"

	cachekey "github.com/always-cache/offline-cache/pkg/cache-key"
)

// Mode is the request mode as reported by the client (Sec-Fetch-Mode).
type Mode string

const (
	ModeNavigate   Mode = "navigate"
	ModeSameOrigin Mode = "same-origin"
	ModeCORS       Mode = "cors"
	ModeNoCORS     Mode = "no-cors"
)

// Destination is the kind of resource requested (Sec-Fetch-Dest).
type Destination string

const (
	DestinationEmpty    Destination = ""
	DestinationDocument Destination = "document"
	DestinationStyle    Destination = "style"
	DestinationScript   Destination = "script"
	DestinationImage    Destination = "image"
	DestinationFont     Destination = "font"
)

// Request is an intercepted request, classified once on creation.
type Request struct {
	Method      string
	URL         *url.URL
	Header      http.Header
	Body        []byte
	Mode        Mode
	Destination Destination
	// Preload is set when the runtime already started fetching this navigation.
	Preload *Preload
}

// NewRequest creates a GET-style request for an absolute URL.
func NewRequest(method, rawURL string) (*Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("request url %s is not absolute", rawURL)
	}
	if method == "" {
		method = http.MethodGet
	}
	return &Request{
		Method: method,
		URL:    u,
		Header: http.Header{},
		Mode:   ModeNoCORS,
	}, nil
}

// Key is the request identity used for every store operation.
func (r *Request) Key() string {
	return cachekey.GetKey(r.Method, r.URL)
}

// IsNavigation reports whether the request loads a new top-level document.
func (r *Request) IsNavigation() bool {
	return r.Mode == ModeNavigate
}

// Clone returns a copy of the request without its preload.
func (r *Request) Clone() *Request {
	c := *r
	u := *r.URL
	c.URL = &u
	c.Header = r.Header.Clone()
	if c.Header == nil {
		c.Header = http.Header{}
	}
	c.Preload = nil
	return &c
}
