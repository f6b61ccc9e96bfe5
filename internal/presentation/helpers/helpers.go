package helpers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/alotrabong/branch-orders-service/internal/domain"
)

func DecodeJSON(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func HttpError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"error": msg})
}

// WriteDomainError maps the error taxonomy onto HTTP statuses. Inventory
// shortfalls and transition rejections are conflicts the caller may retry
// after acting on the detail in the message.
func WriteDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		HttpError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		HttpError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrValidation):
		HttpError(w, http.StatusBadRequest, err.Error())
	case domain.IsInvalidTransition(err), domain.IsInsufficientInventory(err):
		HttpError(w, http.StatusConflict, err.Error())
	default:
		HttpError(w, http.StatusInternalServerError, "internal error")
	}
}
