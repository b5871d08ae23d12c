package functions

import (
	"crypto/subtle"
	"net/http"

	"github.com/dmitrymomot/storefront/handler"
)

// APIKeyHeader carries the shared secret of server-to-server calls.
const APIKeyHeader = "X-Functions-Key"

// RequireAPIKey rejects requests without the expected key with 401.
// An empty key rejects everything.
func RequireAPIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(APIKeyHeader)
			if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				_ = handler.JSONError(handler.ErrUnauthorized).Render(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
