package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	ledgersvc "github.com/fastprodman/progression/internal/services/ledger"
	"github.com/fastprodman/progression/internal/services/ranking"
)

const (
	crownScore         = "crowns"
	defaultCrownsCount = 50
	defaultListCount   = 100
)

type incrementRequest struct {
	Amount *int64 `json:"amount"`
}

type roundRequest struct {
	Won bool `json:"won"`
}

type leaderboardResponse struct {
	ScoreType string          `json:"scoreType"`
	Country   string          `json:"country"`
	Start     int             `json:"start"`
	Entries   []ranking.Entry `json:"entries"`
}

// UpdateCrownScoreHandler handles POST /update-crown-score
func (h *HandlerProvider) UpdateCrownScoreHandler(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.UpdateScore(r.Context(), playerFrom(r), crownScore, idempotencyKey(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"crowns":  res.Scores[crownScore],
	})
}

// IncrementScoreHandler handles POST /scores/{type}/increment
func (h *HandlerProvider) IncrementScoreHandler(w http.ResponseWriter, r *http.Request) {
	var req incrementRequest

	err := decodeBody(w, r, &req, true)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}

	amount := int64(1)
	if req.Amount != nil {
		amount = *req.Amount
	}

	res, err := h.svc.AddScore(r.Context(), ledgersvc.ScoreRequest{
		Player:    playerFrom(r),
		ScoreType: chi.URLParam(r, "type"),
		Amount:    amount,
		Key:       idempotencyKey(r),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, res)
}

// ListCrownsHandler handles GET /highscore/crowns/list
func (h *HandlerProvider) ListCrownsHandler(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, crownScore, defaultCrownsCount)
}

// ListHandler handles GET /highscore/{type}/list
func (h *HandlerProvider) ListHandler(w http.ResponseWriter, r *http.Request) {
	scoreType := chi.URLParam(r, "type")
	if !h.svc.Catalog().IsScoreType(scoreType) {
		h.writeError(w, http.StatusNotFound, "not_found", "unknown score type")
		return
	}

	h.list(w, r, scoreType, defaultListCount)
}

func (h *HandlerProvider) list(w http.ResponseWriter, r *http.Request, scoreType string, defCount int) {
	start, err := queryInt(r, "start", 0)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	count, err := queryInt(r, "count", defCount)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}

	country := r.URL.Query().Get("country")
	if country == "" {
		country = ranking.Global
	}

	entries, err := h.board.List(scoreType, country, start, count)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if entries == nil {
		entries = []ranking.Entry{}
	}

	h.writeJSON(w, http.StatusOK, leaderboardResponse{
		ScoreType: scoreType,
		Country:   country,
		Start:     start,
		Entries:   entries,
	})
}

// FinishRoundHandler handles POST /round/finish/{round}
func (h *HandlerProvider) FinishRoundHandler(w http.ResponseWriter, r *http.Request) {
	round, err := pathInt(r, "round")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}

	var req roundRequest

	err = decodeBody(w, r, &req, true)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}

	res, err := h.svc.FinishRound(r.Context(), ledgersvc.RoundRequest{
		Player: playerFrom(r),
		Round:  int(round),
		Won:    req.Won,
		Key:    idempotencyKey(r),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, res)
}
