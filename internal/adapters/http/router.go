package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/topcoder-platform/email-preferences-service/internal/application"
	"github.com/topcoder-platform/email-preferences-service/internal/ports"
)

type Handler struct {
	service  *application.Service
	verifier ports.TokenVerifier
}

func NewHandler(service *application.Service, verifier ports.TokenVerifier) *Handler {
	return &Handler{service: service, verifier: verifier}
}

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { writeMessage(w, http.StatusOK, "ok") })
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) { writeMessage(w, http.StatusOK, "ready") })

	r.Route("/v1/users/{userId}/preferences", func(r chi.Router) {
		r.Use(handler.authMiddleware)
		r.Head("/", handler.headPreferences)
		r.Get("/", handler.getPreferences)
		r.Put("/", handler.updatePreferences)
	})
	return r
}
