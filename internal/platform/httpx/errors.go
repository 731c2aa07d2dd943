package httpx

import (
	"errors"
	"net/http"

	"github.com/fluxia-erp/fluxia/internal/shared"
)

// Error maps a domain error onto the response envelope.
func Error(w http.ResponseWriter, err error) {
	if ve, ok := shared.AsValidation(err); ok {
		detail := map[string]any{}
		if len(ve.Fields) > 0 {
			detail["fields"] = ve.Fields
		}
		if ve.Details != nil {
			detail["details"] = ve.Details
		}
		if len(detail) == 0 {
			Fail(w, http.StatusBadRequest, ve.Message, nil)
			return
		}
		Fail(w, http.StatusBadRequest, ve.Message, detail)
		return
	}
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Fail(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, shared.ErrConflict):
		Fail(w, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, shared.ErrUnauthorized), errors.Is(err, shared.ErrInvalidCredentials):
		Fail(w, http.StatusUnauthorized, err.Error(), nil)
	default:
		Fail(w, http.StatusInternalServerError, "internal error", nil)
	}
}
