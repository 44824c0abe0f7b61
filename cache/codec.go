package cache

import (
	"bytes"
	"io"
	"net/http"

	serializer "github.com/always-cache/offline-cache/pkg/response-serializer"
)

func encodeResponse(res *Response) ([]byte, error) {
	header := res.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	return serializer.StoredResponseToBytes(serializer.StoredResponse{
		Response: &http.Response{
			StatusCode:    res.StatusCode,
			ProtoMajor:    1,
			ProtoMinor:    1,
			Header:        header,
			Body:          io.NopCloser(bytes.NewReader(res.Body)),
			ContentLength: int64(len(res.Body)),
		},
		Type:     string(res.Type),
		URL:      res.URL,
		StoredAt: res.StoredAt,
	})
}

func decodeResponse(b []byte) (*Response, error) {
	sRes, err := serializer.BytesToStoredResponse(b)
	if err != nil {
		return nil, err
	}
	defer sRes.Response.Body.Close()
	body, err := io.ReadAll(sRes.Response.Body)
	if err != nil {
		return nil, err
	}
	// the wire format carries framing headers of its own
	header := sRes.Response.Header
	header.Del("Content-Length")
	return &Response{
		StatusCode: sRes.Response.StatusCode,
		Header:     header,
		Body:       body,
		Type:       ResponseType(sRes.Type),
		URL:        sRes.URL,
		StoredAt:   sRes.StoredAt,
	}, nil
}
