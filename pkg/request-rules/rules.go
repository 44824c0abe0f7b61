package requestrules

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
)

type Rules []Rule

// Rule matches requests by method, path and query, and adjusts how they are
// classified and served. The first matching rule wins.
type Rule struct {
	Prefix string            `yaml:"prefix"`
	Path   string            `yaml:"path"`
	Method string            `yaml:"method"`
	Query  map[string]string `yaml:"query"`
	// Destination overrides the request destination (document, style, script, image, font).
	Destination string `yaml:"destination"`
	// Navigate forces the request to be treated as a navigation.
	Navigate bool `yaml:"navigate"`
	// Bypass sends the request straight to the network without interception.
	Bypass bool `yaml:"bypass"`
	// Headers are set on every response served for a matching request.
	Headers map[string]string `yaml:"headers"`
}

// Find returns the first rule matching the request, or nil.
func (r Rules) Find(method string, u *url.URL) *Rule {
	log.Trace().Msgf("Finding rule for request %s:%s", method, u.Path)
rulesLoop:
	for i := range r {
		rule := &r[i]
		if rule.Method == "" && method != http.MethodGet {
			continue
		}
		if rule.Method != "" && !strings.EqualFold(rule.Method, method) {
			continue
		}
		if rule.Path != "" && rule.Path != u.Path {
			continue
		}
		if rule.Prefix != "" && !strings.HasPrefix(u.Path, rule.Prefix) {
			continue
		}
		if len(rule.Query) > 0 {
			qry := u.Query()
			for name, value := range rule.Query {
				if value == "" && !qry.Has(name) {
					continue rulesLoop
				} else if value != "" && qry.Get(name) != value {
					continue rulesLoop
				}
			}
		}
		return rule
	}
	return nil
}

// ApplyHeaders sets the rule's headers on the given response header.
func (rule *Rule) ApplyHeaders(header http.Header) {
	if rule == nil {
		return
	}
	for name, value := range rule.Headers {
		log.Trace().Msgf("Setting header %s", name)
		header.Set(name, value)
	}
}
