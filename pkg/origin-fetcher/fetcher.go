package fetcher

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/always-cache/offline-cache/cache"
	"github.com/always-cache/offline-cache/rfc9111"
	"github.com/always-cache/offline-cache/worker"

	"github.com/rs/zerolog"
)

const DefaultTimeout = 30 * time.Second

type Config struct {
	// URL the intercepted requests are scoped to.
	// Requests for this origin are same-origin.
	Scope url.URL
	// URL of the origin server. Same-origin requests are sent here.
	// Defaults to the scope.
	OriginURL url.URL
	// Hostname to use for HTTP requests and TLS negotiation.
	// Use if needed if e.g. the origin URL is just an IP address.
	OriginHost string
	// Timeout of a whole network call. Defaults to DefaultTimeout.
	Timeout time.Duration
	// Logger to use. A console logger is used if nil.
	Logger *zerolog.Logger
}

// Client performs network calls over HTTP.
type Client struct {
	scope      url.URL
	origin     url.URL
	hostHeader string
	client     *http.Client
	log        zerolog.Logger
}

func New(config Config) *Client {
	var logger zerolog.Logger
	if config.Logger == nil {
		logger = zerolog.New(zerolog.NewConsoleWriter())
	} else {
		logger = *config.Logger
	}
	origin := config.OriginURL
	if origin.Host == "" {
		origin = config.Scope
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
		ForceAttemptHTTP2:     true,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}
	if config.OriginHost != "" {
		transport.TLSClientConfig = &tls.Config{
			ServerName: config.OriginHost,
		}
	}

	return &Client{
		scope:      config.Scope,
		origin:     origin,
		hostHeader: config.OriginHost,
		log:        logger,
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
			// do not follow redirects
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Fetch sends the request to the network. Connection failures and timeouts
// are returned wrapping worker.ErrNetworkUnavailable. HTTP error statuses are
// returned as responses.
func (c *Client) Fetch(ctx context.Context, req *worker.Request) (*cache.Response, error) {
	target := *req.URL
	target.Fragment = ""
	sameOrigin := c.isSameOrigin(req.URL)
	if sameOrigin {
		target.Scheme = c.origin.Scheme
		target.Host = c.origin.Host
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target.String(), body)
	if err != nil {
		return nil, err
	}
	copyHeader(httpReq.Header, rfc9111.ForwardHeader(req.Header))
	if sameOrigin {
		if c.hostHeader != "" {
			httpReq.Host = c.hostHeader
		} else {
			httpReq.Host = req.URL.Host
		}
	}

	c.log.Trace().
		Str("method", req.Method).
		Str("url", target.String()).
		Msg("Requesting content from network")
	res, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", worker.ErrNetworkUnavailable, err)
	}
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", worker.ErrNetworkUnavailable, err)
	}

	return &cache.Response{
		StatusCode: res.StatusCode,
		Header:     rfc9111.StorableHeader(res.Header),
		Body:       b,
		Type:       c.responseType(req, res.Header, sameOrigin),
		URL:        req.URL.String(),
	}, nil
}

func (c *Client) isSameOrigin(u *url.URL) bool {
	return u.Scheme == c.scope.Scheme && u.Host == c.scope.Host
}

// responseType classifies a response the way a browser exposes it:
// same-origin responses are basic, cross-origin responses are cors when the
// request asked for CORS and the origin allowed it, anything else is opaque.
func (c *Client) responseType(req *worker.Request, header http.Header, sameOrigin bool) cache.ResponseType {
	if sameOrigin {
		return cache.ResponseTypeBasic
	}
	if req.Mode == worker.ModeCORS {
		requestOrigin := req.Header.Get("Origin")
		if requestOrigin == "" {
			requestOrigin = c.scope.Scheme + "://" + c.scope.Host
		}
		if allowed := header.Get("Access-Control-Allow-Origin"); allowed == "*" || allowed == requestOrigin {
			return cache.ResponseTypeCORS
		}
	}
	return cache.ResponseTypeOpaque
}

func copyHeader(dst, src http.Header) {
	for k, vv := range src {
		// this is a workaround to remove default headers sent by an upstream proxy
		// some servers do not like the presence of these headers in the downstream request
		if k != "X-Forwarded-For" && k != "X-Forwarded-Proto" && k != "X-Forwarded-Host" {
			for _, v := range vv {
				dst.Add(k, v)
			}
		}
	}
}
