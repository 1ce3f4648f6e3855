package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"

	"github.com/mwaghorn2000/oxidex/pkg/logger"
)

const requestIDHeader = "X-Request-ID"

// RequestID assigns each request a random id (or propagates the caller's),
// stores it in the context, and echoes it in the response header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = newRequestID()
		}
		ctx := logger.WithRequestID(r.Context(), id)
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the request id stored in ctx, or "".
var GetRequestID = logger.RequestIDFromContext

func newRequestID() string {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(buf[:])
}
