package server

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/outreach-agent/internal/db"
	"github.com/jonathan/outreach-agent/internal/engine"
	"github.com/jonathan/outreach-agent/internal/types"
)

// HTTPStatus maps application errors to response codes.
func HTTPStatus(err error) int {
	var (
		notFound      *db.ErrNotFound
		stateErr      *engine.StateError
		fieldErr      *types.FieldError
		validationErr validator.ValidationErrors
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &stateErr), errors.Is(err, engine.ErrFollowUpLimit):
		return http.StatusConflict
	case errors.As(err, &fieldErr), errors.As(err, &validationErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
