package gateway

import (
	"net"
	"net/http"
	"net/url"
	"strings"
)

// IsLoopbackOrigin reports whether origin is served from this machine.
func IsLoopbackOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	host := u.Hostname()
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// CheckLocalOrigin accepts native clients that send no Origin header, pages
// served from a loopback address, and pages served by this server itself.
// Every other browser origin is refused so remote pages cannot drive the session.
func CheckLocalOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if IsLoopbackOrigin(origin) {
		return true
	}
	u, err := url.Parse(origin)
	return err == nil && u.Host != "" && strings.EqualFold(u.Host, r.Host)
}
