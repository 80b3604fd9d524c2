package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fastprodman/progression/internal/catalog"
	ledgersvc "github.com/fastprodman/progression/internal/services/ledger"
)

// PurchaseHandler handles POST /economy/purchase/{item}
func (h *HandlerProvider) PurchaseHandler(w http.ResponseWriter, r *http.Request) {
	quantity, err := queryInt(r, "quantity", 1)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}

	res, err := h.svc.Purchase(r.Context(), ledgersvc.PurchaseRequest{
		Player:   playerFrom(r),
		Item:     chi.URLParam(r, "item"),
		Quantity: int64(quantity),
		Key:      idempotencyKey(r),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, res)
}

// GachaHandler handles POST /economy/purchasegasha/{poolId}/{count}
func (h *HandlerProvider) GachaHandler(w http.ResponseWriter, r *http.Request) {
	h.draw(w, r, catalog.PoolGacha)
}

// DropHandler handles POST /economy/purchasedrop/{poolId}/{count}
func (h *HandlerProvider) DropHandler(w http.ResponseWriter, r *http.Request) {
	h.draw(w, r, catalog.PoolLuckySpin)
}

func (h *HandlerProvider) draw(w http.ResponseWriter, r *http.Request, kind string) {
	count, err := pathInt(r, "count")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}

	res, err := h.svc.Draw(r.Context(), ledgersvc.DrawRequest{
		Player: playerFrom(r),
		Kind:   kind,
		Pool:   chi.URLParam(r, "poolId"),
		Count:  int(min(count, 1<<20)),
		Key:    idempotencyKey(r),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, res)
}

// LuckySpinHandler handles POST /economy/purchaseluckyspin
func (h *HandlerProvider) LuckySpinHandler(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.LuckySpin(r.Context(), playerFrom(r), idempotencyKey(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, res)
}

// GiveCurrencyHandler handles POST /economy/{currencyType}/give/{amount}
func (h *HandlerProvider) GiveCurrencyHandler(w http.ResponseWriter, r *http.Request) {
	amount, err := pathInt(r, "amount")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}

	res, err := h.svc.GiveCurrency(r.Context(), ledgersvc.GiveRequest{
		Player:   playerFrom(r),
		Currency: chi.URLParam(r, "currencyType"),
		Amount:   amount,
		Key:      idempotencyKey(r),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, res)
}
