package middleware

import "net/http"

// MaxBodySize returns middleware that caps request bodies at maxBytes:
// a handler's read past the limit fails with an error instead of pulling an
// unbounded upload into memory. The middleware writes no response itself;
// the handler reports the read error.
func MaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
