package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"carteira/internal/core"
	"carteira/internal/ledger"
	"carteira/internal/records"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps engine errors onto HTTP statuses. Validation problems are
// the caller's fault; fetch and subscription failures belong to the store
// collaborator and are reported as bad gateway so the caller can retry.
func writeError(w http.ResponseWriter, err error) {
	var validation *core.ValidationError
	var fetch *records.FetchError
	var subscription *records.SubscriptionError

	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: validation.Error()})
	case errors.Is(err, records.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "record not found"})
	case errors.Is(err, ledger.ErrLoadInFlight):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.As(err, &fetch), errors.As(err, &subscription):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}
