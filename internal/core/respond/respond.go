// Package respond writes JSON bodies for the gateway's own endpoints.
package respond

import (
	"net/http"

	"github.com/goccy/go-json"
)

// ErrorBody keeps the {"detail": "..."} shape map clients already parse.
type ErrorBody struct {
	Detail string `json:"detail"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "encode response: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

func Error(w http.ResponseWriter, status int, detail string) {
	JSON(w, status, ErrorBody{Detail: detail})
}
