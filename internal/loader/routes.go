package loader

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stixly/stixly/internal/api"
)

// StickerCacheControl is sent with every served sticker file. File IDs
// never change content.
const StickerCacheControl = "public, max-age=604800, immutable"

// RegisterRoutes mounts sticker file serving and loader stats. urlFor
// builds the upstream URL of a file ID.
func RegisterRoutes(r chi.Router, l *Loader, urlFor func(string) string) {
	r.Get("/api/stickers/{fileId}", handleSticker(l, urlFor))
	r.Get("/api/loader/stats", handleStats(l))
	r.Put("/api/loader/concurrency", handleConcurrency(l))
}

func handleSticker(l *Loader, urlFor func(string) string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fileID := chi.URLParam(r, "fileId")
		q := r.URL.Query()
		res, err := l.Load(r.Context(), Request{
			FileID:   fileID,
			URL:      urlFor(fileID),
			Kind:     ParseKind(q.Get("kind")),
			Priority: ParsePriority(q.Get("priority")),
			PackID:   q.Get("pack"),
		})
		if err != nil {
			switch {
			case errors.Is(err, api.ErrNotFound):
				http.Error(w, `{"error":"sticker not found"}`, http.StatusNotFound)
			case errors.Is(err, ErrAborted):
				http.Error(w, `{"error":"load aborted"}`, http.StatusServiceUnavailable)
			default:
				writeError(w, http.StatusBadGateway, err)
			}
			return
		}

		ct := res.ContentType
		if ct == "" {
			ct = http.DetectContentType(res.Data)
		}
		w.Header().Set("Content-Type", ct)
		w.Header().Set("Content-Length", strconv.Itoa(len(res.Data)))
		w.Header().Set("Cache-Control", StickerCacheControl)
		w.Write(res.Data)
	}
}

func handleStats(l *Loader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(l.Stats())
	}
}

// handleConcurrency lets a client report its connection so the loader
// can size itself.
func handleConcurrency(l *Loader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			EffectiveType string `json:"effectiveType"`
			RTT           int    `json:"rtt"`
			SaveData      bool   `json:"saveData"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		n := ConcurrencyForNetwork(body.EffectiveType, msToDuration(body.RTT), body.SaveData)
		l.SetMaxConcurrency(n)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int{"max_concurrency": n})
	}
}

// writeError writes err as a JSON error body.
func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
