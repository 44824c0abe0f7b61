package cachekey

import (
	"fmt"
	"net/url"
	"strings"
)

var ErrorMalformedKey = fmt.Errorf("Malformed key")

const methodSeparator = ":"

// GetKey returns the identity of a request: its method and its absolute,
// origin-qualified URL. Fragments never reach the network and are dropped.
// Two requests with the same key are served by the same stored response.
func GetKey(method string, u *url.URL) string {
	if method == "" {
		method = "GET"
	}
	clean := *u
	clean.Fragment = ""
	clean.RawFragment = ""
	return strings.ToUpper(method) + methodSeparator + clean.String()
}

// MethodPrefix gets the key prefix for all keys with the given method.
func MethodPrefix(method string) string {
	return strings.ToUpper(method) + methodSeparator
}

// GetRequestFromKey is the inverse of GetKey.
// It returns an error if the key does not hold a method and an absolute URL.
func GetRequestFromKey(key string) (string, *url.URL, error) {
	method, rawURL, found := strings.Cut(key, methodSeparator)
	if !found || method == "" {
		return "", nil, fmt.Errorf("%w: %s", ErrorMalformedKey, key)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", nil, err
	}
	if !u.IsAbs() {
		return "", nil, fmt.Errorf("%w: %s is not absolute", ErrorMalformedKey, key)
	}
	return method, u, nil
}
