package api

import (
	"net/http"
	"time"

	"github.com/fastprodman/progression/internal/repos/ledger"
)

type createPlayerRequest struct {
	DeviceID    string `json:"deviceId"`
	DisplayName string `json:"displayName"`
	Country     string `json:"country"`
}

type profileRequest struct {
	DisplayName string `json:"displayName"`
	Country     string `json:"country"`
}

type playerResponse struct {
	ID          ledger.PlayerID        `json:"id"`
	DisplayName string                 `json:"displayName"`
	Country     string                 `json:"country"`
	Version     int64                  `json:"version"`
	Currencies  map[string]int64       `json:"currencies"`
	Scores      map[string]int64       `json:"scores"`
	Items       map[string]int64       `json:"items"`
	BattlePass  ledger.BattlePassState `json:"battlePass"`
	CreatedAt   time.Time              `json:"createdAt"`
	UpdatedAt   time.Time              `json:"updatedAt"`
}

func toPlayerResponse(rec ledger.PlayerRecord) playerResponse {
	return playerResponse{
		ID:          rec.ID,
		DisplayName: rec.DisplayName,
		Country:     rec.Country,
		Version:     rec.Version,
		Currencies:  rec.State.Currencies,
		Scores:      rec.State.Scores,
		Items:       rec.State.Items,
		BattlePass:  rec.State.BattlePass,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
}

// CreatePlayerHandler handles POST /players
func (h *HandlerProvider) CreatePlayerHandler(w http.ResponseWriter, r *http.Request) {
	var req createPlayerRequest

	err := decodeBody(w, r, &req, false)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	if req.DeviceID == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_input", "deviceId required")
		return
	}

	rec, err := h.svc.CreatePlayer(r.Context(), ledger.NewPlayer{
		DeviceID:    req.DeviceID,
		DisplayName: req.DisplayName,
		Country:     req.Country,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, toPlayerResponse(rec))
}

// GetPlayerHandler handles GET /players/me
func (h *HandlerProvider) GetPlayerHandler(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.GetPlayer(r.Context(), playerFrom(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toPlayerResponse(rec))
}

// UpdateProfileHandler handles PUT /players/me/profile
func (h *HandlerProvider) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	var req profileRequest

	err := decodeBody(w, r, &req, false)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}

	rec, err := h.svc.UpdateProfile(r.Context(), playerFrom(r), ledger.Profile{
		DisplayName: req.DisplayName,
		Country:     req.Country,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toPlayerResponse(rec))
}
