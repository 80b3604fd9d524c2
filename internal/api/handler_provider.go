package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/fastprodman/progression/internal/repos/ledger"
	ledgersvc "github.com/fastprodman/progression/internal/services/ledger"
	"github.com/fastprodman/progression/internal/services/ranking"
)

const maxBodyBytes = 1 << 20

// Leaderboard answers ranked listings. Reads do not go through the ledger.
type Leaderboard interface {
	List(scoreType, country string, start, count int) ([]ranking.Entry, error)
}

// HandlerProvider wraps the ledger service and leaderboard and exposes HTTP handlers.
type HandlerProvider struct {
	svc    *ledgersvc.LedgerService
	board  Leaderboard
	logger *slog.Logger
}

// NewHandler returns a new Handler provider.
func NewHandler(svc *ledgersvc.LedgerService, board Leaderboard, logger *slog.Logger) *HandlerProvider {
	if logger == nil {
		logger = slog.Default()
	}

	return &HandlerProvider{svc: svc, board: board, logger: logger}
}

// --- Helpers ---

func (h *HandlerProvider) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		h.logger.Error("failed to encode JSON response", "error", err)
	}
}

func (h *HandlerProvider) writeError(w http.ResponseWriter, status int, code, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg, "code": code})
}

// writeServiceError maps ledger errors to status codes. This is the only
// place domain errors become HTTP.
func (h *HandlerProvider) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ledger.ErrInvalidInput):
		h.writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds):
		h.writeError(w, http.StatusConflict, "insufficient_funds", "insufficient funds")
	case errors.Is(err, ledger.ErrNotEligible):
		h.writeError(w, http.StatusUnprocessableEntity, "not_eligible", err.Error())
	case errors.Is(err, ledger.ErrConflict):
		w.Header().Set("Retry-After", "1")
		h.writeError(w, http.StatusConflict, "conflict", "concurrent modification, retry with the same Idempotency-Key")
	case errors.Is(err, ledger.ErrUnavailable):
		w.Header().Set("Retry-After", "1")
		h.writeError(w, http.StatusServiceUnavailable, "unavailable", "ledger unavailable")
	default:
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

// decodeBody reads a JSON body into dst. An empty body is accepted when
// optional is set.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any, optional bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if errors.Is(err, io.EOF) {
		if optional {
			return nil
		}
		return errors.New("empty body")
	}
	if err != nil {
		return errors.New("invalid JSON")
	}

	return nil
}

func idempotencyKey(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("Idempotency-Key"))
}

// pathInt reads a positive integer path parameter.
func pathInt(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)

	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, errors.New("invalid " + name + ": must be a positive integer")
	}

	return n, nil
}

// queryInt reads an optional integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("invalid " + name + ": must be an integer")
	}

	return n, nil
}
