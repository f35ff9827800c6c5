package middleware

import (
	"mime"
	"net/http"

	"trainerleave/internal/transport/http/api"
)

// JSONBody caps request bodies of mutating calls and requires a JSON content type
// whenever a body is present.
func JSONBody(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodPatch {
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength != 0 {
				mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
				if err != nil || mediaType != "application/json" {
					api.Fail(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "content type must be application/json", GetRequestID(r.Context()))
					return
				}
			}
			if maxBytes > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
