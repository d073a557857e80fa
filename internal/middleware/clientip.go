package middleware

import (
	"net"
	"net/http"
	"strings"
)

// headerXForwardedFor is consulted before RemoteAddr so the access log
// shows the originating client behind a load balancer.
const headerXForwardedFor = "X-Forwarded-For"

// clientIP returns the originating client address: the first hop of
// X-Forwarded-For when present, otherwise the connection peer.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get(headerXForwardedFor); xff != "" {
		first := xff
		if idx := strings.IndexByte(xff, ','); idx >= 0 {
			first = xff[:idx]
		}
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
