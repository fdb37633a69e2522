package transport

import (
	"encoding/json"
	"net/http"

	"github.com/rhuss/crawlrouter/pkg/api"
)

// WriteError writes err as an error envelope. Errors that are not
// *api.APIError become server errors; the status follows the error type.
func WriteError(w http.ResponseWriter, err error) {
	e := api.AsAPIError(err)
	WriteStatus(w, e.HTTPStatus(), e)
}

// WriteStatus writes e with an explicit status, for conditions detected
// by the transport itself such as an oversized body.
func WriteStatus(w http.ResponseWriter, status int, e *api.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: e})
}
