package rfc9111

import (
	"net/http"
	"testing"
)

func TestStorableHeader(t *testing.T) {
	header := http.Header{}
	header.Set("Connection", "close, X-Internal")
	header.Set("X-Internal", "secret")
	header.Set("Keep-Alive", "timeout=5")
	header.Set("Transfer-Encoding", "chunked")
	header.Set("Content-Length", "10")
	header.Set("Proxy-Authenticate", "Basic")
	header.Set("Content-Type", "text/html")
	header.Set("Etag", `"v1"`)

	h := StorableHeader(header)
	for _, name := range []string{"Connection", "X-Internal", "Keep-Alive", "Transfer-Encoding", "Content-Length", "Proxy-Authenticate"} {
		if h.Get(name) != "" {
			t.Fatalf("%s stored", name)
		}
	}
	if h.Get("Content-Type") != "text/html" || h.Get("Etag") != `"v1"` {
		t.Fatalf("End-to-end fields missing: %v", h)
	}
	if header.Get("Connection") == "" {
		t.Fatal("Original header modified")
	}
}

func TestForwardHeaderKeepsContentLength(t *testing.T) {
	header := http.Header{}
	header.Set("Content-Length", "10")
	header.Set("Upgrade", "websocket")
	h := ForwardHeader(header)
	if h.Get("Content-Length") != "10" || h.Get("Upgrade") != "" {
		t.Fatalf("Header is %v", h)
	}
}

func TestGetListHeader(t *testing.T) {
	header := http.Header{}
	header.Add("Vary", "Accept-Encoding, Origin")
	header.Add("Vary", " ,Accept")
	list := GetListHeader(header, "Vary")
	if len(list) != 3 || list[0] != "Accept-Encoding" || list[1] != "Origin" || list[2] != "Accept" {
		t.Fatalf("List is %v", list)
	}
}

func TestNilHeader(t *testing.T) {
	if h := StorableHeader(nil); h == nil {
		t.Fatal("Nil header returned")
	}
}

func TestMustInvalidate(t *testing.T) {
	tests := []struct {
		method string
		status int
		want   bool
	}{
		{"GET", 200, false},
		{"HEAD", 200, false},
		{"POST", 200, true},
		{"POST", 303, true},
		{"DELETE", 204, true},
		{"PUT", 404, false},
		{"PATCH", 500, false},
		{"PURGE", 200, true},
	}
	for _, tt := range tests {
		if got := MustInvalidate(tt.method, tt.status); got != tt.want {
			t.Errorf("%s %d: got %v", tt.method, tt.status, got)
		}
	}
}
