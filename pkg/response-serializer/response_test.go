package serializer

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestResponseToBytesBodyIntact(t *testing.T) {
	response := "HTTP/1.1 200 OK\r\nServer: Test\r\nContent-Length: 16\r\n\r\nThis is the body"

	res, err := http.ReadResponse(bufio.NewReader(strings.NewReader(response)), nil)
	if err != nil {
		t.Fatal(err)
	}

	_, err = responseToBytes(res)
	if err != nil {
		t.Fatalf("Error: %v", err)
	}
	body, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("Error: %v", err)
	}
	if fmt.Sprintf("%s", body) != "This is the body" {
		t.Fatalf("Body: %s", body)
	}
}

func TestStoredResponseSerialization(t *testing.T) {
	body := []byte("console.log('v1')")
	res := http.Response{
		StatusCode:    200,
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        http.Header{},
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
	}
	res.Header.Add("Test", "-ing")
	storedAt := time.Now()
	bts, err := StoredResponseToBytes(StoredResponse{
		Response: &res,
		Type:     "cors",
		URL:      "https://cdn.example/app.js",
		StoredAt: storedAt,
	})
	if err != nil {
		t.Fatalf("Error creating bytes: %+v", err)
	}
	// deserialize
	res2, err := BytesToStoredResponse(bts)
	if err != nil {
		t.Fatalf("Error creating response: %+v", err)
	}
	if res2.Response.Header.Get("Test") != "-ing" {
		t.Fatalf("Test header wrong %+v", res2.Response.Header)
	}
	if res2.Response.Header.Get(storedAtHeaderName) != "" || res2.Response.Header.Get(typeHeaderName) != "" {
		t.Fatalf("Metadata headers left in response %+v", res2.Response.Header)
	}
	if res2.Type != "cors" || res2.URL != "https://cdn.example/app.js" {
		t.Fatalf("Metadata wrong: %s %s", res2.Type, res2.URL)
	}
	if !res2.StoredAt.Equal(time.Unix(0, storedAt.UnixNano())) {
		t.Fatalf("Stored time %v, expected %v", res2.StoredAt, storedAt)
	}
	got, _ := io.ReadAll(res2.Response.Body)
	if string(got) != string(body) {
		t.Fatalf("Body is %s", got)
	}
	// the original response body is still readable
	orig, _ := io.ReadAll(res.Body)
	if string(orig) != string(body) {
		t.Fatalf("Original body is %s", orig)
	}
}
