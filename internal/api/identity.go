package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/fastprodman/progression/internal/repos/ledger"
)

const (
	playerHeader = "X-Player-ID"
	deviceHeader = "X-Device-ID"
)

type playerKey struct{}

// identify attributes the request to a player. The gateway in front of this
// service sets X-Player-ID after authentication; a bare X-Device-ID is
// resolved through the identity lookup.
func (h *HandlerProvider) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ledger.PlayerID(strings.TrimSpace(r.Header.Get(playerHeader)))

		if id == "" {
			device := strings.TrimSpace(r.Header.Get(deviceHeader))
			if device == "" {
				h.writeError(w, http.StatusUnauthorized, "unauthenticated", "missing "+playerHeader+" or "+deviceHeader)
				return
			}

			resolved, err := h.svc.ResolveIdentity(r.Context(), device)
			if err != nil {
				h.writeServiceError(w, r, err)
				return
			}
			id = resolved
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), playerKey{}, id)))
	})
}

func playerFrom(r *http.Request) ledger.PlayerID {
	id, _ := r.Context().Value(playerKey{}).(ledger.PlayerID)
	return id
}
