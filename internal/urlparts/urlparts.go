// Package urlparts derives host and registrable domain from URLs.
package urlparts

import (
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Split returns the lower-cased hostname of rawURL and its registrable
// domain (eTLD+1). When no registrable domain exists, as for IP addresses
// or single-label hosts, domain equals host. Both are empty when rawURL has
// no host.
func Split(rawURL string) (host, domain string) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", ""
	}
	host = strings.ToLower(u.Hostname())
	if host == "" {
		return "", ""
	}
	if net.ParseIP(host) != nil {
		return host, host
	}
	d, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil || d == "" {
		return host, host
	}
	return host, d
}
