package gallery

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stixly/stixly/internal/api"
)

// RegisterRoutes mounts the cached gallery listing. feed may be nil.
func RegisterRoutes(r chi.Router, g *Gallery, feed *SwipeFeed) {
	r.Route("/api/gallery", func(r chi.Router) {
		r.Get("/", handlePage(g))
		r.Get("/stats", handleStats(g))
		r.Get("/layout", handleLayout)
		r.Post("/invalidate", handleInvalidate(g))
	})
	if feed != nil {
		r.Route("/api/swipe", func(r chi.Router) {
			r.Get("/", handleFeedState(feed))
			r.Post("/next", handleFeedNext(feed))
			r.Post("/reset", handleFeedReset(feed))
			r.Post("/{id}/like", handleSwipe(feed, true))
			r.Post("/{id}/dislike", handleSwipe(feed, false))
		})
	}
}

// ListingFromQuery reads a listing from gallery query parameters.
func ListingFromQuery(q map[string][]string) Listing {
	get := func(k string) string {
		if v := q[k]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}
	l := Listing{
		Query: get("q"),
		Filter: api.StickerSetFilter{
			Sort:      get("sort"),
			Direction: get("direction"),
			Type:      get("type"),
			LikedOnly: get("liked") == "true",
		},
	}
	if c := get("category"); c != "" {
		l.Filter.CategoryKeys = strings.Split(c, ",")
	}
	if d, err := time.Parse(time.DateOnly, get("from")); err == nil {
		l.Filter.DateFrom = &d
	}
	if d, err := time.Parse(time.DateOnly, get("to")); err == nil {
		l.Filter.DateTo = &d
	}
	if a, err := strconv.ParseInt(get("author"), 10, 64); err == nil {
		l.AuthorID = a
	}
	return l
}

func handlePage(g *Gallery) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page, _ := strconv.Atoi(q.Get("page"))

		pg, err := g.Load(r.Context(), ListingFromQuery(q), page)
		if err != nil {
			status := http.StatusBadGateway
			if errors.Is(err, api.ErrNotFound) {
				status = http.StatusNotFound
			}
			writeError(w, status, err)
			return
		}

		out := *pg
		if patterns := q["match"]; len(patterns) > 0 {
			matched, err := MatchNames(pg.Content, patterns)
			if err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			out.Content = matched
			out.NumberOfElements = len(matched)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)
	}
}

func handleStats(g *Gallery) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(g.Stats())
	}
}

func handleInvalidate(g *Gallery) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g.Invalidate()
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleFeedState(feed *SwipeFeed) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if st := feed.State(); len(st.Sets) == 0 && st.HasMore {
			feed.Fill(r.Context())
		}
		writeFeed(w, feed)
	}
}

func handleFeedNext(feed *SwipeFeed) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := feed.Next(r.Context()); err != nil {
			writeError(w, http.StatusBadGateway, err)
			return
		}
		writeFeed(w, feed)
	}
}

func handleFeedReset(feed *SwipeFeed) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := feed.Reset(r.Context()); err != nil {
			writeError(w, http.StatusBadGateway, err)
			return
		}
		writeFeed(w, feed)
	}
}

func handleSwipe(feed *SwipeFeed, like bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			http.Error(w, `{"error":"invalid sticker set id"}`, http.StatusBadRequest)
			return
		}
		if like {
			err = feed.Like(r.Context(), id)
		} else {
			err = feed.Dislike(r.Context(), id)
		}
		if err != nil {
			status := http.StatusBadGateway
			if code := api.StatusOf(err); code >= 400 && code < 500 {
				status = code
			}
			writeError(w, status, err)
			return
		}
		writeFeed(w, feed)
	}
}

func writeFeed(w http.ResponseWriter, feed *SwipeFeed) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(feed.State())
}

// writeError writes err as a JSON error body.
func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
