package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"starlight/internal/middleware"
	"starlight/internal/users"
)

func (h *Handler) StarplaceProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	user, found := h.users.Get(userID)
	if !found {
		respondError(w, http.StatusNotFound, "user_not_found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"unlocked":  h.users.HasStarplaceAccess(userID),
		"starplace": user.Starplace,
	})
}

func (h *Handler) StarplaceUnlock(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if h.users.HasStarplaceAccess(userID) {
		respondJSON(w, http.StatusOK, map[string]any{"unlocked": true})
		return
	}
	fee := h.cfg.StarplaceFee
	tx, err := h.bank.Spend(r.Context(), userID, fee, fmt.Sprintf("Starplace unlock (one-time, %d)", fee))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if err := h.users.GrantStarplaceAccess(r.Context(), userID); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"unlocked": true, "transaction": tx})
}

type starplaceSettingsRequest struct {
	ThemeKey string `json:"theme_key"`
	Avatar   string `json:"avatar"`
	Quote    string `json:"quote"`
	Journal  string `json:"journal"`
}

func (h *Handler) StarplaceSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !h.users.HasStarplaceAccess(userID) {
		respondError(w, http.StatusForbidden, "starplace_locked")
		return
	}
	var req starplaceSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	sp := users.Starplace{
		Confirmed: true,
		ThemeKey:  req.ThemeKey,
		Avatar:    req.Avatar,
		Quote:     req.Quote,
		Journal:   req.Journal,
	}
	if err := h.users.UpdateStarplace(r.Context(), userID, sp); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "applied"})
}
