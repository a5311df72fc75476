package host

import (
	"net"
	"net/http"
	"strings"
)

// FromString normalizes a raw host header value: lowercases it and strips a
// trailing port when one is present.
func FromString(s string) string {
	host := strings.ToLower(strings.TrimSpace(s))

	if splitHost, _, err := net.SplitHostPort(host); err == nil {
		host = splitHost
	}

	return host
}

// FromRequest returns the normalized host for a request.
func FromRequest(r *http.Request) string {
	return FromString(r.Host)
}

// RemoteIP returns the client IP from RemoteAddr, without the port.
func RemoteIP(r *http.Request) string {
	remoteAddr, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return remoteAddr
}
