package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"starlight/internal/auth"
	"starlight/internal/codes"
	"starlight/internal/middleware"
	"starlight/internal/users"
	"starlight/internal/validator"
)

type joinRequest struct {
	AccessCode  string `json:"access_code"`
	DisplayName string `json:"display_name"`
	VibeMode    bool   `json:"vibe_mode"`
	Password    string `json:"password"`
}

func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	displayName := strings.Join(strings.Fields(req.DisplayName), " ")
	if err := validator.ValidateUsername(displayName); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if strings.EqualFold(displayName, users.FounderID) {
		if h.cfg.AdminPasswordHash == "" || !auth.CheckPassword(h.cfg.AdminPasswordHash, req.Password) {
			respondError(w, http.StatusUnauthorized, "incorrect password (or secrets not configured)")
			return
		}
		token, err := auth.GenerateToken(h.cfg.JWTSecret, users.FounderID, h.cfg.TokenTTL)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to generate token")
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"token": token, "user_id": users.FounderID})
		return
	}

	codeText := strings.TrimSpace(req.AccessCode)
	if codeText == "" {
		respondError(w, http.StatusBadRequest, "access_code_required")
		return
	}
	row, ok := h.bank.AccessCodeStatus(codeText)
	if !ok || row.Status != codes.StatusNew {
		respondError(w, http.StatusBadRequest, "code_not_recognized")
		return
	}
	title := row.Package.Title
	if title == "" {
		title = "Frontier"
	}

	vibe := "Vibe: OFF"
	if req.VibeMode {
		vibe = "Vibe: ON"
	}
	user, err := h.users.Create(r.Context(), displayName, vibe, title)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	description := fmt.Sprintf("Sign-on bonus (%s)", title)
	tx, err := h.bank.RedeemAccessCode(r.Context(), codeText, user.UserID, description, h.cfg.SignOnBonus)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	token, err := auth.GenerateToken(h.cfg.JWTSecret, user.UserID, h.cfg.TokenTTL)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"token":       token,
		"user_id":     user.UserID,
		"title":       user.Title,
		"transaction": tx,
	})
}

type adminLoginRequest struct {
	Password string `json:"password"`
}

func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if h.cfg.AdminPasswordHash == "" || !auth.CheckPassword(h.cfg.AdminPasswordHash, req.Password) {
		respondError(w, http.StatusUnauthorized, "incorrect password (or secrets not configured)")
		return
	}
	token, err := auth.GenerateToken(h.cfg.JWTSecret, users.FounderID, h.cfg.TokenTTL)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"token": token, "user_id": users.FounderID})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
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
	respondJSON(w, http.StatusOK, user)
}
