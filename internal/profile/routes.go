package profile

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the profile snapshot and onboarding flag routes.
func RegisterRoutes(r chi.Router, snaps *SnapshotStore, flags *Flags) {
	r.Route("/api/profile", func(r chi.Router) {
		r.Get("/snapshot", handleGetSnapshot(snaps))
		r.Put("/snapshot", handlePutSnapshot(snaps))
		r.Delete("/snapshot", handleDeleteSnapshot(snaps))
		r.Get("/flags", handleListFlags(flags))
		r.Put("/flags/{name}", handleSetFlag(flags))
		r.Delete("/flags/{name}", handleClearFlag(flags))
	})
}

func handleGetSnapshot(snaps *SnapshotStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := snaps.Load(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if snap == nil {
			http.Error(w, `{"error":"no snapshot saved"}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(snap)
	}
}

func handlePutSnapshot(snaps *SnapshotStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var snap Snapshot
		if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		saved, err := snaps.Save(r.Context(), snap)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(saved)
	}
}

func handleDeleteSnapshot(snaps *SnapshotStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := snaps.Clear(r.Context()); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleListFlags(flags *Flags) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all, err := flags.All(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(all)
	}
}

func handleSetFlag(flags *Flags) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Value bool `json:"value"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		name := chi.URLParam(r, "name")
		if err := flags.Set(r.Context(), name, body.Value); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"name": name, "value": body.Value})
	}
}

func handleClearFlag(flags *Flags) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := flags.Clear(r.Context(), chi.URLParam(r, "name")); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// writeError writes err as a JSON error body.
func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
