package likes

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the likes API routes.
func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/api/likes", func(r chi.Router) {
		r.Get("/", handleList(svc))
		r.Get("/{id}", handleGet(svc))
		r.Post("/{id}/toggle", handleToggle(svc))
	})
}

func packIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func handleList(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(svc.All())
	}
}

func handleGet(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := packIDParam(r)
		if !ok {
			http.Error(w, `{"error":"invalid pack id"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(svc.Get(id))
	}
}

func handleToggle(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := packIDParam(r)
		if !ok {
			http.Error(w, `{"error":"invalid pack id"}`, http.StatusBadRequest)
			return
		}

		st, err := svc.Toggle(id)
		w.Header().Set("Content-Type", "application/json")
		if errors.Is(err, ErrRateLimited) {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
		} else {
			w.WriteHeader(http.StatusAccepted)
		}
		json.NewEncoder(w).Encode(st)
	}
}
