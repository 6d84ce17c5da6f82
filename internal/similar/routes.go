package similar

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the similarity endpoints.
func RegisterRoutes(r chi.Router, x *Index) {
	r.Route("/api/similar", func(r chi.Router) {
		r.Get("/", handleSearch(x))
		r.Get("/{id}", handleLike(x))
	})
}

func queryLimit(r *http.Request) int {
	n, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return n
}

func queryFilter(r *http.Request) *Filter {
	author, err := strconv.ParseInt(r.URL.Query().Get("author"), 10, 64)
	if err != nil || author == 0 {
		return nil
	}
	return &Filter{AuthorID: author}
}

func handleSearch(x *Index) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		if q == "" {
			http.Error(w, `{"error":"q is required"}`, http.StatusBadRequest)
			return
		}
		matches, err := x.Search(r.Context(), q, queryLimit(r), queryFilter(r))
		if err != nil {
			http.Error(w, `{"error":"search failed"}`, http.StatusBadGateway)
			return
		}
		writeMatches(w, matches)
	}
}

func handleLike(x *Index) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			http.Error(w, `{"error":"invalid set id"}`, http.StatusBadRequest)
			return
		}
		matches, err := x.Like(r.Context(), id, queryLimit(r), queryFilter(r))
		if errors.Is(err, ErrUnknownSet) {
			http.Error(w, `{"error":"set not indexed"}`, http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, `{"error":"search failed"}`, http.StatusInternalServerError)
			return
		}
		writeMatches(w, matches)
	}
}

func writeMatches(w http.ResponseWriter, matches []Match) {
	if matches == nil {
		matches = []Match{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(matches)
}
