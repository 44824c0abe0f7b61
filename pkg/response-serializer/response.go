package serializer

import (
	"bufio"
	"bytes"
	"net/http"
	"strconv"
	"time"
)

const (
	storedAtHeaderName = "Offline-Cache-Stored-At"
	typeHeaderName     = "Offline-Cache-Type"
	urlHeaderName      = "Offline-Cache-Url"
)

type StoredResponse struct {
	Response *http.Response
	// Response type (basic, cors or opaque) as classified when fetched.
	Type string
	// URL the response was fetched from.
	URL string
	// The value of the clock at the time the response was put in a store.
	StoredAt time.Time
}

func BytesToStoredResponse(b []byte) (StoredResponse, error) {
	sRes := StoredResponse{}
	res, err := bytesToResponse(b)
	if err != nil {
		return sRes, err
	}
	sRes.Response = res
	storedAtInt, err := strconv.ParseInt(res.Header.Get(storedAtHeaderName), 10, 64)
	if err != nil {
		return sRes, err
	}
	sRes.StoredAt = time.Unix(0, storedAtInt)
	sRes.Type = res.Header.Get(typeHeaderName)
	sRes.URL = res.Header.Get(urlHeaderName)
	// delete extra headers
	sRes.Response.Header.Del(storedAtHeaderName)
	sRes.Response.Header.Del(typeHeaderName)
	sRes.Response.Header.Del(urlHeaderName)
	return sRes, nil
}

func StoredResponseToBytes(sRes StoredResponse) ([]byte, error) {
	res := sRes.Response
	if res.Header == nil {
		res.Header = http.Header{}
	}
	res.Header.Set(storedAtHeaderName, strconv.FormatInt(sRes.StoredAt.UnixNano(), 10))
	res.Header.Set(typeHeaderName, sRes.Type)
	if sRes.URL != "" {
		res.Header.Set(urlHeaderName, sRes.URL)
	}
	bts, err := responseToBytes(res)
	// remove the extra headers just in case
	res.Header.Del(storedAtHeaderName)
	res.Header.Del(typeHeaderName)
	res.Header.Del(urlHeaderName)
	return bts, err
}

// bytesToResponse converts a byte slice to a http.Response.
func bytesToResponse(b []byte) (*http.Response, error) {
	return http.ReadResponse(bufio.NewReader(bytes.NewReader(b)), nil)
}

// responseToBytes converts a response to a byte slice.
// It returns the HTTP/1.1 representation of the response
// and leaves a readable body on the given response.
func responseToBytes(res *http.Response) ([]byte, error) {
	// write response to buffer
	buf := &bytes.Buffer{}
	if err := res.Write(buf); err != nil {
		return nil, err
	}
	// set response body back
	bts := buf.Bytes()
	clonedRes, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(bts)), res.Request)
	if err != nil {
		return nil, err
	}
	res.Body = clonedRes.Body
	// return buffer bytes
	return bts, nil
}
