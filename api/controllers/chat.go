package controllers

import (
	"net/http"

	"github.com/academiaalbert/academia-backend/api/responses"
	"github.com/academiaalbert/academia-backend/api/validators"
	"github.com/academiaalbert/academia-backend/internal/chat"
	"github.com/academiaalbert/academia-backend/pkg/logger"
)

// ChatAsk forwards a visitor question to the Albert assistant.
func ChatAsk(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("chat service"))
			return
		}
		var body chat.Request
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		reply, err := svc.Ask(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, reply)
	}
}
