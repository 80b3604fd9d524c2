package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	ledgersvc "github.com/fastprodman/progression/internal/services/ledger"
)

type passClaimRequest struct {
	RewardID string `json:"rewardId"`
}

// MissionsHandler handles GET /missions
func (h *HandlerProvider) MissionsHandler(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.Missions(r.Context(), playerFrom(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"missions": views})
}

// ClaimMissionHandler handles POST /missions/{missionId}/rewards/claim
func (h *HandlerProvider) ClaimMissionHandler(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ClaimMission(r.Context(), ledgersvc.MissionClaim{
		Player:  playerFrom(r),
		Mission: chi.URLParam(r, "missionId"),
		Key:     idempotencyKey(r),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, res)
}

// ClaimMilestoneHandler handles POST /missions/objective/{missionId}/{milestoneId}/rewards/claim
func (h *HandlerProvider) ClaimMilestoneHandler(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ClaimMilestone(r.Context(), ledgersvc.MilestoneClaim{
		Player:    playerFrom(r),
		Mission:   chi.URLParam(r, "missionId"),
		Milestone: chi.URLParam(r, "milestoneId"),
		Key:       idempotencyKey(r),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, res)
}

// BattlePassHandler handles GET /battlepass
func (h *HandlerProvider) BattlePassHandler(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.BattlePass(r.Context(), playerFrom(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, view)
}

// ClaimPassRewardHandler handles POST /battlepass/claim
func (h *HandlerProvider) ClaimPassRewardHandler(w http.ResponseWriter, r *http.Request) {
	var req passClaimRequest

	err := decodeBody(w, r, &req, false)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	if req.RewardID == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_input", "rewardId required")
		return
	}

	res, err := h.svc.ClaimPassReward(r.Context(), ledgersvc.PassClaim{
		Player: playerFrom(r),
		Reward: req.RewardID,
		Key:    idempotencyKey(r),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, res)
}

// PurchasePassHandler handles POST /battlepass/purchase
func (h *HandlerProvider) PurchasePassHandler(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.PurchasePremium(r.Context(), playerFrom(r), idempotencyKey(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, res)
}

// CompletePassHandler handles POST /battlepass/complete
func (h *HandlerProvider) CompletePassHandler(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.CompletePass(r.Context(), playerFrom(r), idempotencyKey(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, res)
}
