package cachekey

import (
	"errors"
	"net/url"
	"strings"
	"testing"
)

func TestRequestFromKey(t *testing.T) {
	u, _ := url.Parse("http://dev.localhost/page?q=1")
	key := GetKey("GET", u)
	method, reqURL, err := GetRequestFromKey(key)
	if err != nil {
		t.Fatalf("%s: %s", key, err)
	}
	if method != "GET" {
		t.Fatalf("Method for key %s is %s", key, method)
	}
	if s := reqURL.String(); s != "http://dev.localhost/page?q=1" {
		t.Fatalf("Created request url for key %s is %s", key, s)
	}
}

func TestKeyIncludesOrigin(t *testing.T) {
	a, _ := url.Parse("https://one.example/app.js")
	b, _ := url.Parse("https://two.example/app.js")
	if GetKey("GET", a) == GetKey("GET", b) {
		t.Fatalf("Keys for different origins are equal: %s", GetKey("GET", a))
	}
}

func TestKeyDropsFragment(t *testing.T) {
	a, _ := url.Parse("https://one.example/page#top")
	b, _ := url.Parse("https://one.example/page")
	if GetKey("GET", a) != GetKey("GET", b) {
		t.Fatalf("Fragment changed key: %s", GetKey("GET", a))
	}
	if strings.Contains(GetKey("GET", a), "#") {
		t.Fatalf("Key contains fragment")
	}
}

func TestKeyMethodIsPrefix(t *testing.T) {
	u, _ := url.Parse("https://one.example/form")
	if key := GetKey("post", u); !strings.HasPrefix(key, MethodPrefix("POST")) {
		t.Fatalf("Key %s does not start with method prefix", key)
	}
}

func TestMalformedKey(t *testing.T) {
	if _, _, err := GetRequestFromKey("/relative"); !errors.Is(err, ErrorMalformedKey) {
		t.Fatalf("Expected malformed key error, got %v", err)
	}
	if _, _, err := GetRequestFromKey("GET:/relative"); !errors.Is(err, ErrorMalformedKey) {
		t.Fatalf("Expected malformed key error, got %v", err)
	}
}
