package web

import (
	"net/http"
	"strings"

	"github.com/JonMunkholm/Inventory/internal/core"
)

// ActorHeader names the user responsible for a change when the body does not.
const ActorHeader = "X-Changed-By"

// withActor copies the X-Changed-By header into the request context for the
// stock history.
func withActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if actor := strings.TrimSpace(r.Header.Get(ActorHeader)); actor != "" {
			r = r.WithContext(core.ContextWithActor(r.Context(), actor))
		}
		next.ServeHTTP(w, r)
	})
}
