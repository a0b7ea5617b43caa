package api

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
)

// fingerprintFromRequest derives a stable per-device hash for rate limiting
// when the client did not supply one: SHA-256 over IP, user agent and accept
// language.
func fingerprintFromRequest(r *http.Request) string {
	components := []string{
		remoteIP(r),
		r.Header.Get("User-Agent"),
		r.Header.Get("Accept-Language"),
	}

	sum := sha256.Sum256([]byte(strings.Join(components, "|")))
	return hex.EncodeToString(sum[:])
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
