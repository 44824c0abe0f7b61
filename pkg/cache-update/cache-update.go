package cacheupdate

import (
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/always-cache/offline-cache/rfc9111"
)

var delayDirective = regexp.MustCompile(`(?i)\bdelay=(\d+)`)

// CacheUpdate is a resource whose stored responses are stale after a
// state-changing request.
type CacheUpdate struct {
	// Absolute URL of the resource, without query or fragment.
	URL *url.URL
	// Update delay, i.e. delay update by this duration.
	Delay time.Duration
}

// GetCacheUpdates gets the updates a response to an unsafe request asks for:
// the target itself, and every `Cache-Update` entry of the response, e.g.
// `Cache-Update: /cart; delay=2`. Relative paths are resolved against the
// target. Entries for other origins are ignored.
func GetCacheUpdates(method string, target *url.URL, statusCode int, header http.Header) []CacheUpdate {
	if !rfc9111.MustInvalidate(method, statusCode) {
		return nil
	}
	self := *target
	self.RawQuery = ""
	self.Fragment = ""
	updates := []CacheUpdate{{URL: &self}}
	seen := map[string]bool{self.String(): true}
	for _, value := range header.Values("Cache-Update") {
		for _, update := range strings.Split(value, ",") {
			update = strings.TrimSpace(update)
			if update == "" {
				continue
			}
			u := getURL(target, update)
			if u.Scheme != target.Scheme || u.Host != target.Host || seen[u.String()] {
				continue
			}
			seen[u.String()] = true
			updates = append(updates, CacheUpdate{URL: u, Delay: getDelay(update)})
		}
	}
	return updates
}

// getURL returns the URL to update the cache for from the `Cache-Update` header parameter.
// The URL is the first parameter in the header value (separated by a semicolon).
func getURL(target *url.URL, update string) *url.URL {
	possiblyRelativeURL := update
	if i := strings.Index(update, ";"); i != -1 {
		possiblyRelativeURL = strings.TrimSpace(update[:i])
	}
	ref, err := url.Parse(possiblyRelativeURL)
	if err != nil {
		ref = &url.URL{Path: possiblyRelativeURL}
	}
	u := target.ResolveReference(ref)
	u.RawQuery = ""
	u.Fragment = ""
	return u
}

// getDelay returns the delay to wait before updating the cache for from the `Cache-Update` header parameter.
// The delay directive syntax is `delay=N`, where N is the number of seconds to wait.
// If no delay directive is found, it returns 0.
func getDelay(update string) time.Duration {
	if matches := delayDirective.FindStringSubmatch(update); matches != nil {
		if delay, err := strconv.Atoi(matches[1]); err == nil {
			return time.Duration(delay) * time.Second
		}
	}
	return 0
}
