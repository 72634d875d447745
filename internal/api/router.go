package api

import (
	"log/slog"
	"net/http"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter mounts the REST routes, /metrics and the websocket endpoint
func NewRouter(a *API, wsHandler http.Handler, log *slog.Logger) http.Handler {
	r := mux.NewRouter()

	r.Handle("/ws", wsHandler)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/health", a.HealthHandler).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/stats", a.StatsHandler).Methods(http.MethodGet)
	api.HandleFunc("/rooms", a.ListRoomsHandler).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{id}", a.GetRoomHandler).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{id}", a.DeleteRoomHandler).Methods(http.MethodDelete)
	api.HandleFunc("/rooms/{id}/history", a.RoomHistoryHandler).Methods(http.MethodGet)

	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.errorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.errorResponse(w, http.StatusNotFound, "Not found")
	})

	// Outside the router so preflight and unmatched requests pass through too
	return accessLog(log)(cors(r))
}

func accessLog(log *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// The websocket upgrade hijacks the writer and lives for the whole session
			if r.URL.Path == "/ws" {
				next.ServeHTTP(w, r)
				return
			}
			m := httpsnoop.CaptureMetrics(next, w, r)
			log.Debug("handled", "method", r.Method, "url", r.URL, "duration", m.Duration, "status", m.Code)
		})
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
