package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	ledgersvc "github.com/fastprodman/progression/internal/services/ledger"
)

// NewRouter constructs a chi router with all API endpoints registered.
func NewRouter(svc *ledgersvc.LedgerService, board Leaderboard, logger *slog.Logger) http.Handler {
	h := NewHandler(svc, board, logger)
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.accessLog)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Post("/players", h.CreatePlayerHandler)

	// Leaderboard reads need no identity.
	r.Get("/highscore/crowns/list", h.ListCrownsHandler)
	r.Get("/highscore/{type}/list", h.ListHandler)

	r.Group(func(r chi.Router) {
		r.Use(h.identify)

		r.Get("/players/me", h.GetPlayerHandler)
		r.Put("/players/me/profile", h.UpdateProfileHandler)

		r.Post("/update-crown-score", h.UpdateCrownScoreHandler)
		r.Post("/scores/{type}/increment", h.IncrementScoreHandler)
		r.Post("/round/finish/{round}", h.FinishRoundHandler)

		r.Post("/economy/purchase/{item}", h.PurchaseHandler)
		r.Post("/economy/purchasegasha/{poolId}/{count}", h.GachaHandler)
		r.Post("/economy/purchaseluckyspin", h.LuckySpinHandler)
		r.Post("/economy/purchasedrop/{poolId}/{count}", h.DropHandler)
		r.Post("/economy/{currencyType}/give/{amount}", h.GiveCurrencyHandler)

		r.Get("/missions", h.MissionsHandler)
		r.Post("/missions/{missionId}/rewards/claim", h.ClaimMissionHandler)
		r.Post("/missions/objective/{missionId}/{milestoneId}/rewards/claim", h.ClaimMilestoneHandler)

		r.Get("/battlepass", h.BattlePassHandler)
		r.Post("/battlepass/claim", h.ClaimPassRewardHandler)
		r.Post("/battlepass/purchase", h.PurchasePassHandler)
		r.Post("/battlepass/complete", h.CompletePassHandler)
	})

	return r
}

func (h *HandlerProvider) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		h.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
