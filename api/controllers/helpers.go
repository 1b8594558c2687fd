package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/academiaalbert/academia-backend/api/middleware"
	pkgerrors "github.com/academiaalbert/academia-backend/pkg/errors"
)

func currentUserID(r *http.Request) (uuid.UUID, error) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return id.UserID, nil
}

func unavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" unavailable")
}
