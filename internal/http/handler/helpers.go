package handler

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
)

// decodeJSON enforces a strict body: unknown fields rejected, single value.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// requestIP extracts the client IP. RealIP middleware has already rewritten
// RemoteAddr when a trusted proxy header was present.
func requestIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
