package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// TrustedRealIP rewrites r.RemoteAddr from the X-Real-IP or
// X-Forwarded-For header, but only when the connection itself comes from
// a trusted proxy. Requests from anywhere else keep their socket address,
// so a client cannot spoof its way past rate limiting or request logging
// by sending the headers directly.
//
// With an empty trusted list the middleware is a no-op and every request
// is attributed to its socket address.
func TrustedRealIP(trusted []string) func(http.Handler) http.Handler {
	prefixes := parseTrustedProxies(trusted)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			peer, err := peerAddr(r.RemoteAddr)
			if err == nil && fromTrustedProxy(peer, prefixes) {
				if ip := forwardedClientIP(r.Header); ip.IsValid() {
					r.RemoteAddr = ip.String()
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// parseTrustedProxies converts the configured proxy list into prefixes.
// Entries may be CIDRs or single addresses; anything unparsable is logged
// once at startup and dropped.
func parseTrustedProxies(entries []string) []netip.Prefix {
	var out []netip.Prefix
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if p, err := netip.ParsePrefix(e); err == nil {
			out = append(out, p.Masked())
			continue
		}
		if a, err := netip.ParseAddr(e); err == nil {
			out = append(out, netip.PrefixFrom(a, a.BitLen()))
			continue
		}
		slog.Warn("ignoring invalid trusted proxy entry", "entry", e)
	}
	return out
}

// peerAddr extracts the connection source address from host:port or a
// bare address string.
func peerAddr(remoteAddr string) (netip.Addr, error) {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return netip.ParseAddr(host)
	}
	return netip.ParseAddr(remoteAddr)
}

func fromTrustedProxy(peer netip.Addr, trusted []netip.Prefix) bool {
	peer = peer.Unmap()
	for _, p := range trusted {
		if p.Contains(peer) {
			return true
		}
	}
	return false
}

// forwardedClientIP pulls the original client address from the proxy
// headers: X-Real-IP first, then the first hop of the X-Forwarded-For
// chain. Returns the zero Addr when neither header carries a valid
// address, leaving the socket address in place.
func forwardedClientIP(h http.Header) netip.Addr {
	if v := strings.TrimSpace(h.Get("X-Real-IP")); v != "" {
		if a, err := netip.ParseAddr(v); err == nil {
			return a
		}
	}
	if v := h.Get("X-Forwarded-For"); v != "" {
		first, _, _ := strings.Cut(v, ",")
		if a, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
			return a
		}
	}
	return netip.Addr{}
}
