package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/topcoder-platform/email-preferences-service/internal/domain"
	"github.com/topcoder-platform/email-preferences-service/internal/ports"
)

const (
	roleAdmin = "Administrator"

	scopeReadPreferences   = "read:preferences"
	scopeUpdatePreferences = "update:preferences"
	scopeAllPreferences    = "all:preferences"
)

// authorize enforces the original access policy: a user token must belong
// to an Administrator or to the user whose preferences are addressed; a
// machine token must carry one of the allowed scopes.
func authorize(claims ports.AuthClaims, userID string, allowedScopes ...string) error {
	if len(claims.Roles) > 0 {
		for _, role := range claims.Roles {
			if strings.EqualFold(role, roleAdmin) {
				return nil
			}
		}
		if claims.UserID == userID {
			return nil
		}
		return domain.ErrForbidden
	}
	for _, scope := range claims.Scopes {
		for _, allowed := range allowedScopes {
			if scope == allowed {
				return nil
			}
		}
	}
	return domain.ErrForbidden
}

func (h *Handler) getPreferences(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or missing credentials")
		return
	}
	userID := chi.URLParam(r, "userId")
	if err := authorize(claims, userID, scopeReadPreferences, scopeAllPreferences); err != nil {
		status, code, msg := mapDomainError(err)
		writeError(w, status, code, msg)
		return
	}
	view, err := h.service.GetPreferences(r.Context(), userID)
	if err != nil {
		status, code, msg := mapDomainError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) headPreferences(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or missing credentials")
		return
	}
	userID := chi.URLParam(r, "userId")
	if err := authorize(claims, userID, scopeReadPreferences, scopeAllPreferences); err != nil {
		status, _, _ := mapDomainError(err)
		w.WriteHeader(status)
		return
	}
	if _, err := h.service.GetPreferences(r.Context(), userID); err != nil {
		status, _, _ := mapDomainError(err)
		w.WriteHeader(status)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) updatePreferences(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or missing credentials")
		return
	}
	userID := chi.URLParam(r, "userId")
	if err := authorize(claims, userID, scopeUpdatePreferences, scopeAllPreferences); err != nil {
		status, code, msg := mapDomainError(err)
		writeError(w, status, code, msg)
		return
	}
	var desired domain.PreferenceRecord
	if err := json.NewDecoder(r.Body).Decode(&desired); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json body")
		return
	}
	if err := h.service.UpdatePreferences(r.Context(), userID, desired); err != nil {
		status, code, msg := mapDomainError(err)
		writeError(w, status, code, msg)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
