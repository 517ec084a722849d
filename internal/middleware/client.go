package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/outrclub/outr-api/internal/model"
)

// ClientIP returns the first X-Forwarded-For entry, falling back to the
// connection's remote host and finally to "unknown".
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if r.RemoteAddr != "" {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			return r.RemoteAddr
		}
		if host != "" {
			return host
		}
	}

	return "unknown"
}

// ClientInfo describes the request origin for sessions and audit entries.
func ClientInfo(r *http.Request) model.ClientInfo {
	return model.ClientInfo{
		IP:        ClientIP(r),
		UserAgent: r.UserAgent(),
	}
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
// It returns "" when the header is missing or uses another scheme.
func BearerToken(r *http.Request) string {
	token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !found {
		return ""
	}
	return strings.TrimSpace(token)
}
