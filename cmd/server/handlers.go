package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"commodity-sim-go/internal/ledger"
	"commodity-sim-go/internal/market"
	"commodity-sim-go/internal/models"
	"commodity-sim-go/internal/session"
	"go.uber.org/zap"
)

// APIHandler holds dependencies for the API endpoints.
type APIHandler struct {
	log     *zap.Logger
	manager *session.Manager
	sim     *market.Simulator
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(log *zap.Logger, manager *session.Manager, sim *market.Simulator) *APIHandler {
	return &APIHandler{log: log, manager: manager, sim: sim}
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", zap.Error(err))
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps core errors onto HTTP status codes. The core itself
// never sees HTTP.
func (h *APIHandler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrNoSession):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrInvalidQuantity),
		errors.Is(err, market.ErrUnknownInstrument):
		status = http.StatusBadRequest
	case errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, ledger.ErrInsufficientHoldings),
		errors.Is(err, ledger.ErrClosed):
		status = http.StatusConflict
	}
	h.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (h *APIHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

// HealthHandler reports liveness.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type loginRequest struct {
	Username string `json:"username"`
	Resume   bool   `json:"resume"`
}

type loginResponse struct {
	SessionID string  `json:"session_id"`
	Username  string  `json:"username"`
	Balance   float64 `json:"balance"`
}

// LoginHandler creates (or resumes) a session for the username.
func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Username == "" {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "username is required"})
		return
	}

	var (
		sess *session.Session
		err  error
	)
	if req.Resume {
		sess, err = h.manager.Resume(req.Username)
	} else {
		sess, err = h.manager.Login(req.Username)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, loginResponse{
		SessionID: sess.ID,
		Username:  sess.Username,
		Balance:   sess.Ledger.Balance(),
	})
}

type sessionRequest struct {
	SessionID string `json:"session_id"`
}

// LogoutHandler discards the session entirely.
func (h *APIHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.manager.Logout(req.SessionID); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

type tradeRequest struct {
	SessionID  string  `json:"session_id"`
	Instrument string  `json:"instrument"`
	Quantity   float64 `json:"quantity"`
}

// BuyHandler executes a buy for the session.
func (h *APIHandler) BuyHandler(w http.ResponseWriter, r *http.Request) {
	h.tradeHandler(w, r, h.manager.Buy)
}

// SellHandler executes a sell for the session.
func (h *APIHandler) SellHandler(w http.ResponseWriter, r *http.Request) {
	h.tradeHandler(w, r, h.manager.Sell)
}

func (h *APIHandler) tradeHandler(w http.ResponseWriter, r *http.Request,
	op func(string, models.Instrument, float64) (*models.Transaction, error)) {

	var req tradeRequest
	if !h.decode(w, r, &req) {
		return
	}

	tx, err := op(req.SessionID, models.Instrument(req.Instrument), req.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, tx)
}

type priceResponse struct {
	Instrument string  `json:"instrument"`
	Price      float64 `json:"price"`
}

// PriceHandler returns the current simulated price of one instrument.
func (h *APIHandler) PriceHandler(w http.ResponseWriter, r *http.Request) {
	instrument := models.Instrument(r.URL.Query().Get("instrument"))
	price, err := h.sim.CurrentPrice(instrument)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, priceResponse{Instrument: string(instrument), Price: price})
}

// HistoryHandler returns the instrument's recent price window, oldest first.
func (h *APIHandler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	instrument := models.Instrument(r.URL.Query().Get("instrument"))
	history, err := h.sim.HistorySnapshot(instrument)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, history)
}

// TransactionsHandler returns the session's trade log ordered by
// timestamp; ?order=asc or desc (default desc, most recent first).
func (h *APIHandler) TransactionsHandler(w http.ResponseWriter, r *http.Request) {
	sess, err := h.manager.Get(r.URL.Query().Get("session_id"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	order := ledger.Descending
	if r.URL.Query().Get("order") == string(ledger.Ascending) {
		order = ledger.Ascending
	}
	h.writeJSON(w, http.StatusOK, sess.Ledger.TransactionHistory(order))
}

type portfolioResponse struct {
	Balance    float64                       `json:"balance"`
	Holdings   map[models.Instrument]float64 `json:"holdings"`
	TotalValue float64                       `json:"total_value"`
}

// PortfolioHandler reports cash, holdings and mark-to-market value.
func (h *APIHandler) PortfolioHandler(w http.ResponseWriter, r *http.Request) {
	sess, err := h.manager.Get(r.URL.Query().Get("session_id"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	total, err := sess.Ledger.TotalValue(h.sim.CurrentPrice)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, portfolioResponse{
		Balance:    sess.Ledger.Balance(),
		Holdings:   sess.Ledger.Holdings(),
		TotalValue: total,
	})
}

type profileRequest struct {
	SessionID string             `json:"session_id"`
	Profile   models.ProfileData `json:"profile"`
}

// ProfileHandler creates or replaces the session's investor profile.
func (h *APIHandler) ProfileHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		sess, err := h.manager.Get(r.URL.Query().Get("session_id"))
		if err != nil {
			h.writeError(w, err)
			return
		}
		profile := sess.Profile()
		if profile == nil {
			h.writeJSON(w, http.StatusNotFound, errorResponse{Error: "no profile"})
			return
		}
		h.writeJSON(w, http.StatusOK, profile)
		return
	}

	var req profileRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.manager.SetProfile(req.SessionID, req.Profile); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "profile saved"})
}

// ProfileStatusHandler reports whether the session has a profile; the
// access-control layer gates trading pages on it.
func (h *APIHandler) ProfileStatusHandler(w http.ResponseWriter, r *http.Request) {
	has, err := h.manager.HasProfile(r.URL.Query().Get("session_id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"has_profile": has})
}
