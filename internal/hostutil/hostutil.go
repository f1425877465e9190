// Package hostutil provides shared utilities for library server URLs.
package hostutil

import (
	"net"
	"net/netip"
	"strings"
)

// Normalize converts a host string to a full URL without a trailing slash.
// - Empty string returns empty
// - loopback, LAN addresses and .local/.lan/.home.arpa names default to http://
// - Other bare hostnames default to https://
// - Full URLs are kept
func Normalize(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		return ""
	}
	host = strings.TrimRight(host, "/")
	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return host
	}
	if IsLocal(host) {
		return "http://" + host
	}
	return "https://" + host
}

// IsLocal reports whether host, with an optional port, names a machine
// on the local network, where photo servers rarely have certificates.
func IsLocal(host string) bool {
	name := host
	if h, _, err := net.SplitHostPort(host); err == nil {
		name = h
	}
	name = strings.Trim(name, "[]")

	if addr, err := netip.ParseAddr(name); err == nil {
		return addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast()
	}
	name = strings.ToLower(name)
	if name == "localhost" || !strings.Contains(name, ".") {
		return true
	}
	for _, suffix := range []string{".localhost", ".local", ".lan", ".home.arpa", ".internal"} {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}
