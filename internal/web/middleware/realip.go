package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
)

// Proxies is the set of reverse proxies whose forwarding headers are believed.
type Proxies struct {
	nets []*net.IPNet
}

// NewProxies parses CIDRs or single IPs. Invalid entries are logged and skipped.
func NewProxies(trustedCIDRs []string) *Proxies {
	p := &Proxies{}
	for _, cidr := range trustedCIDRs {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" {
			continue
		}

		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			// Allow "127.0.0.1" as well as "127.0.0.1/32"
			if ip := net.ParseIP(cidr); ip != nil {
				mask := net.CIDRMask(128, 128)
				if ip.To4() != nil {
					mask = net.CIDRMask(32, 32)
				}
				p.nets = append(p.nets, &net.IPNet{IP: ip, Mask: mask})
			} else {
				slog.Warn("realip: invalid trusted proxy CIDR, skipping",
					"cidr", cidr,
					"error", err,
				)
			}
			continue
		}
		p.nets = append(p.nets, network)
	}
	return p
}

// Trusts reports whether the request's immediate peer is a trusted proxy.
// It must be called before RealIP rewrites RemoteAddr, or on the original
// peer address.
func (p *Proxies) Trusts(remoteAddr string) bool {
	ip := extractIP(remoteAddr)
	if ip == nil {
		return false
	}
	for _, network := range p.nets {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// RealIP replaces RemoteAddr with the client address from X-Real-IP or the
// first X-Forwarded-For entry, but only when the peer is a trusted proxy.
// Untrusted peers keep their own address so they cannot spoof the rate
// limiter. The peer's scheme header is remembered for Scheme.
func (p *Proxies) RealIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !p.Trusts(r.RemoteAddr) {
			r.Header.Del(forwardedProtoTrusted)
			next.ServeHTTP(w, r)
			return
		}

		if rip := r.Header.Get("X-Real-IP"); rip != "" {
			if ip := net.ParseIP(strings.TrimSpace(rip)); ip != nil {
				r.RemoteAddr = ip.String()
			}
		} else if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			candidate, _, _ := strings.Cut(xff, ",")
			if ip := net.ParseIP(strings.TrimSpace(candidate)); ip != nil {
				r.RemoteAddr = ip.String()
			}
		}

		if proto := strings.ToLower(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto"))); proto == "http" || proto == "https" {
			r.Header.Set(forwardedProtoTrusted, proto)
		} else {
			r.Header.Del(forwardedProtoTrusted)
		}

		next.ServeHTTP(w, r)
	})
}

// forwardedProtoTrusted is set only by RealIP, after the peer was checked.
// Any client-supplied copy is removed.
const forwardedProtoTrusted = "X-Inventory-Forwarded-Proto"

// Scheme returns "https" for TLS requests or when a trusted proxy said so,
// otherwise "http".
func Scheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if proto := r.Header.Get(forwardedProtoTrusted); proto != "" {
		return proto
	}
	return "http"
}

// ClientIP returns the host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// extractIP parses an IP address from a host:port string or plain IP.
func extractIP(addr string) net.IP {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return net.ParseIP(host)
	}
	return net.ParseIP(addr)
}
