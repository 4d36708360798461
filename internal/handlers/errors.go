package handlers

import (
	"errors"
	"net/http"

	"starlight/internal/careon"
	"starlight/internal/codes"
	"starlight/internal/ledger"
	"starlight/internal/service"
	"starlight/internal/users"
)

func respondDomainError(w http.ResponseWriter, err error) {
	var insufficient *ledger.InsufficientBalanceError
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount), errors.Is(err, careon.ErrInvalidAmount):
		respondError(w, http.StatusBadRequest, "invalid_amount")
	case errors.As(err, &insufficient):
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"error":     "insufficient_balance",
			"available": insufficient.Available,
			"requested": insufficient.Requested,
		})
	case errors.Is(err, ledger.ErrSameUserTransfer):
		respondError(w, http.StatusBadRequest, "same_user_transfer")
	case errors.Is(err, codes.ErrMalformedCode):
		respondError(w, http.StatusBadRequest, "malformed_code")
	case errors.Is(err, codes.ErrUnknownCode):
		respondError(w, http.StatusNotFound, "unknown_code")
	case errors.Is(err, codes.ErrAlreadyUsed):
		respondError(w, http.StatusConflict, "code_already_used")
	case errors.Is(err, service.ErrAmountTooLarge):
		respondError(w, http.StatusBadRequest, "amount_too_large")
	case errors.Is(err, service.ErrStorageUnavailable), errors.Is(err, users.ErrStorageUnavailable):
		respondError(w, http.StatusServiceUnavailable, "storage_unavailable")
	case errors.Is(err, users.ErrUsernameTaken):
		respondError(w, http.StatusConflict, "username_taken")
	case errors.Is(err, users.ErrUserNotFound):
		respondError(w, http.StatusNotFound, "user_not_found")
	default:
		respondError(w, http.StatusInternalServerError, "internal_error")
	}
}
