package rfc9111

import (
	"net/http"
	"strings"
)

// hop-by-hop fields, never forwarded nor stored
var connectionFields = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"TE",
	"Transfer-Encoding",
	"Upgrade",
}

// §  3.1.  Storing Header and Trailer Fields
//
// StorableHeader returns the response header fields to keep in a stored
// response. The body of a stored response is always complete, so framing
// fields are dropped too.
func StorableHeader(header http.Header) http.Header {
	if header == nil {
		return http.Header{}
	}
	h := ForwardHeader(header)
	// §     *  Header fields that are specific to the proxy that a cache uses
	// §        when forwarding a request MUST NOT be stored, unless the cache
	// §        incorporates the identity of the proxy into the cache key.
	// §        Effectively, this is limited to Proxy-Authenticate (Section 11.7.1
	// §        of [HTTP]), Proxy-Authentication-Info (Section 11.7.3 of [HTTP]),
	// §        and Proxy-Authorization (Section 11.7.2 of [HTTP]).
	h.Del("Proxy-Authenticate")
	h.Del("Proxy-Authentication-Info")
	h.Del("Proxy-Authorization")
	h.Del("Content-Length")
	h.Del("Trailer")
	return h
}

// ForwardHeader returns a copy of the header without the Connection field,
// the fields listed in it and the other hop-by-hop fields.
func ForwardHeader(header http.Header) http.Header {
	h := header.Clone()
	if h == nil {
		return http.Header{}
	}
	// §     *  The Connection header field and fields whose names are listed in
	// §        it are required by Section 7.6.1 of [HTTP] to be removed before
	// §        forwarding the message.  This MAY be implemented by doing so
	// §        before storage.
	for _, name := range GetListHeader(header, "Connection") {
		h.Del(name)
	}
	for _, name := range connectionFields {
		h.Del(name)
	}
	return h
}

// GetListHeader returns the comma separated members of a list-based field.
func GetListHeader(header http.Header, field string) []string {
	list := make([]string, 0)
	for _, hdr := range header.Values(field) {
		for _, item := range strings.Split(hdr, ",") {
			if item = strings.TrimSpace(item); item != "" {
				list = append(list, item)
			}
		}
	}
	return list
}
