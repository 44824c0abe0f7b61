package rfc9111

import "net/http"

// §  4.4.  Invalidating Stored Responses
// §
// §     Because unsafe request methods (Section 9.2.1 of [HTTP]) such as PUT,
// §     POST, or DELETE have the potential for changing state on the origin
// §     server, intervening caches are required to invalidate stored
// §     responses to keep their contents up to date.

// UnsafeMethod reports whether requests with the method may change state on
// the origin. Unknown methods are unsafe.
func UnsafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return false
	}
	return true
}

// §     A "non-error response" is one with a 2xx (Successful) or 3xx
// §     (Redirection) status code.

func NonErrorStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 400
}

// §     A cache MUST invalidate the target URI (Section 7.1 of [HTTP]) when
// §     it receives a non-error status code in response to an unsafe request
// §     method (including methods whose safety is unknown).

// MustInvalidate reports whether a response to the given request
// invalidates the stored responses of its target URI.
func MustInvalidate(method string, statusCode int) bool {
	return UnsafeMethod(method) && NonErrorStatus(statusCode)
}
