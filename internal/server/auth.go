package server

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
)

// withAuth guards a handler with the configured bearer token. When no
// token is configured the marketplace accepts uploads from anyone, which
// is the expected mode for local use.
func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiToken == "" {
			next.ServeHTTP(w, r)
			return
		}

		presented := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if presented == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(s.apiToken)) != 1 {
			s.writeError(w, r, unauthorized(fmt.Errorf("invalid or missing API token")))
			return
		}

		next.ServeHTTP(w, r)
	})
}
