// Package middleware provides the HTTP middleware of the dashboard server.
package middleware

import (
	"net"
	"net/http"
)

// ClientIP returns the host part of the request's remote address.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
