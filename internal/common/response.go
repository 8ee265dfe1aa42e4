package common

import (
	"encoding/json"
	"errors"
	"net/http"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
	// Set only for bulk actions that stopped part way.
	Succeeded []string `json:"succeeded,omitempty"`
	Failed    string   `json:"failed,omitempty"`
	Skipped   []string `json:"skipped,omitempty"`
}

func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, ErrorResponse{Error: message})
}

// RespondWithDomainError renders err the way a form shows it inline: message plus the
// offending field, and the per-account report for partial bulk failures.
func RespondWithDomainError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: PublicMessage(err), Field: FieldOf(err)}
	var pf *PartialFailureError
	if errors.As(err, &pf) {
		resp.Succeeded = pf.Succeeded
		resp.Failed = pf.Failed
		resp.Skipped = pf.Skipped
	}
	RespondWithJSON(w, HTTPStatusFromError(err), resp)
}

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
