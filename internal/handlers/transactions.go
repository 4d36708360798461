package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"starlight/internal/careon"
	"starlight/internal/middleware"
	"starlight/internal/validator"
)

type mutationRequest struct {
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

func (h *Handler) decodeMutation(w http.ResponseWriter, r *http.Request) (userID string, amount int64, description string, ok bool) {
	userID, authed := middleware.UserIDFromContext(r.Context())
	if !authed {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return "", 0, "", false
	}
	var req mutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return "", 0, "", false
	}
	amount, err := careon.ParseAmount(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_amount")
		return "", 0, "", false
	}
	if err := validator.ValidateDescription(req.Description); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return "", 0, "", false
	}
	return userID, amount, strings.TrimSpace(req.Description), true
}

// Deposit is admin-only.
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	userID, amount, description, ok := h.decodeMutation(w, r)
	if !ok {
		return
	}
	if !h.users.IsAdmin(userID) {
		respondError(w, http.StatusForbidden, "deposits are admin-only")
		return
	}
	tx, err := h.bank.Deposit(r.Context(), userID, amount, description)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, tx)
}

func (h *Handler) Spend(w http.ResponseWriter, r *http.Request) {
	userID, amount, description, ok := h.decodeMutation(w, r)
	if !ok {
		return
	}
	tx, err := h.bank.Spend(r.Context(), userID, amount, description)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, tx)
}

type transferRequest struct {
	ToUserID    string `json:"to_user_id"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if _, found := h.users.Get(req.ToUserID); !found {
		respondError(w, http.StatusNotFound, "recipient not found")
		return
	}
	amount, err := careon.ParseAmount(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	out, in, err := h.bank.Transfer(r.Context(), userID, req.ToUserID, amount, strings.TrimSpace(req.Description))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"debit": out, "credit": in})
}

type redeemRequest struct {
	Code string `json:"code"`
}

func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	tx, err := h.bank.Redeem(r.Context(), req.Code, userID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, tx)
}

func (h *Handler) DailyBonus(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	tx, applied, err := h.bank.DailyBonus(r.Context(), userID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if !applied {
		respondJSON(w, http.StatusOK, map[string]any{"applied": false})
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"applied": true, "transaction": tx})
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	personal, global := h.bank.Balance(userID)
	respondJSON(w, http.StatusOK, map[string]any{
		"user_id":          userID,
		"personal_balance": personal,
		"global_balance":   global,
		"personal_display": careon.Format(personal),
		"global_display":   careon.Format(global),
	})
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.bank.Stats())
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	limit := 25
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	scope := userID
	if r.URL.Query().Get("scope") == "all" {
		if !h.users.IsAdmin(userID) {
			respondError(w, http.StatusForbidden, "admin privileges required")
			return
		}
		scope = ""
	}
	respondJSON(w, http.StatusOK, h.bank.Recent(limit, scope))
}

func (h *Handler) WSBalances(w http.ResponseWriter, r *http.Request) {
	h.serveBalanceSocket(w, r)
}
