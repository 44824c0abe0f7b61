package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/always-cache/offline-cache/cache"
	tee "github.com/always-cache/offline-cache/pkg/response-writer-tee"
	"github.com/always-cache/offline-cache/rfc9111"
	"github.com/always-cache/offline-cache/worker"
)

// Handler serves network calls from an in-process http.Handler,
// e.g. when the cache is used as middleware. All responses are same-origin.
type Handler struct {
	next http.Handler
}

func NewHandler(next http.Handler) *Handler {
	return &Handler{next: next}
}

// Fetch runs the handler. A handler that panics, e.g. with
// http.ErrAbortHandler, is reported as an unavailable network.
func (h *Handler) Fetch(ctx context.Context, req *worker.Request) (res *cache.Response, err error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL.String(), body)
	if err != nil {
		return nil, err
	}
	httpReq.Header = rfc9111.ForwardHeader(req.Header)
	httpReq.RequestURI = req.URL.RequestURI()

	rw := tee.NewResponseSaver(nil)
	defer func() {
		if p := recover(); p != nil {
			res = nil
			err = fmt.Errorf("%w: handler aborted: %v", worker.ErrNetworkUnavailable, p)
		}
	}()
	h.next.ServeHTTP(rw, httpReq)

	recorded, err := rw.Result(httpReq)
	if err != nil {
		return nil, err
	}
	defer recorded.Body.Close()
	b, err := io.ReadAll(recorded.Body)
	if err != nil {
		return nil, err
	}
	return &cache.Response{
		StatusCode: recorded.StatusCode,
		Header:     rfc9111.StorableHeader(recorded.Header),
		Body:       b,
		Type:       cache.ResponseTypeBasic,
		URL:        req.URL.String(),
	}, nil
}
