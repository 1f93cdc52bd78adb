// Package health serves the service descriptor, liveness and readiness probes.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/mohammed-shakir/wms-gateway/internal/core/respond"
)

const readyTimeout = 3 * time.Second

// Pinger reports whether a dependency can be reached right now.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Root answers GET / with the service name.
func Root(service string) http.HandlerFunc {
	type resp struct {
		OK      bool   `json:"ok"`
		Service string `json:"service"`
	}
	return func(w http.ResponseWriter, _ *http.Request) {
		respond.JSON(w, http.StatusOK, resp{OK: true, Service: service})
	}
}

func Liveness() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

// Readiness pings the database; 503 until it answers.
func Readiness(db Pinger) http.HandlerFunc {
	type resp struct {
		Status string `json:"status"`
		Error  string `json:"error,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			respond.JSON(w, http.StatusServiceUnavailable, resp{Status: "not_ready", Error: err.Error()})
			return
		}
		respond.JSON(w, http.StatusOK, resp{Status: "ready"})
	}
}
