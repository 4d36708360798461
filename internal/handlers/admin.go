package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"starlight/internal/careon"
	"starlight/internal/codes"
	"starlight/internal/middleware"
)

type issueCodeRequest struct {
	Code        string `json:"code"`
	Prefix      string `json:"prefix"`
	Title       string `json:"title"`
	SignOnBonus int64  `json:"sign_on_bonus"`
	AwardCareon int64  `json:"award_careon"`
}

func (h *Handler) IssueCode(w http.ResponseWriter, r *http.Request) {
	var req issueCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.SignOnBonus < 0 || req.AwardCareon < 0 {
		respondError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	row, err := h.bank.IssueCode(r.Context(), req.Code, req.Prefix, codes.Package{
		Title:       req.Title,
		SignOnBonus: req.SignOnBonus,
		AwardCareon: req.AwardCareon,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, row)
}

func (h *Handler) ListCodes(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.bank.ListCodes())
}

type adminRedeemRequest struct {
	Code string `json:"code"`
}

func (h *Handler) AdminRedeemCode(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req adminRedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	tx, err := h.bank.RedeemAccessCode(r.Context(), req.Code, userID, "Admin code award", 0)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, tx)
}

type adminAwardRequest struct {
	UserID      string `json:"user_id"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

func (h *Handler) AdminAward(w http.ResponseWriter, r *http.Request) {
	var req adminAwardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if _, found := h.users.Get(req.UserID); !found {
		respondError(w, http.StatusNotFound, "user_not_found")
		return
	}
	amount, err := careon.ParseAmount(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = "Admin award"
	}
	tx, err := h.bank.Award(r.Context(), req.UserID, amount, description)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, tx)
}

func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	rebuilt, err := h.bank.Reconcile(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"rebuilt_users": rebuilt})
}

type resetRequest struct {
	Target  string `json:"target"`
	Confirm string `json:"confirm"`
}

func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if strings.ToUpper(strings.TrimSpace(req.Confirm)) != "RESET" {
		respondError(w, http.StatusBadRequest, "confirmation_required")
		return
	}
	var err error
	switch req.Target {
	case "bank":
		err = h.bank.ResetBank(r.Context())
	case "codes":
		err = h.bank.ResetCodes(r.Context())
	case "users":
		err = h.users.Reset(r.Context())
	default:
		respondError(w, http.StatusBadRequest, "unknown_target")
		return
	}
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "reset", "target": req.Target})
}

func (h *Handler) RawSnapshot(w http.ResponseWriter, r *http.Request) {
	bank, registry := h.bank.Snapshot()
	respondJSON(w, http.StatusOK, map[string]any{
		"bank":  bank,
		"codes": registry,
		"users": h.users.Snapshot(),
	})
}

func (h *Handler) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.users.List())
}
