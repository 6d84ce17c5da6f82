// Package dashboard serves the HTML gallery report and streams generation
// progress over WebSocket.
package dashboard

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"github.com/stixly/stixly/internal/api"
	"github.com/stixly/stixly/internal/gallery"
	"github.com/stixly/stixly/internal/likes"
	"github.com/stixly/stixly/internal/loader"
)

const (
	defaultReportPages = 3
	defaultTopN        = 10
)

// GenerationWatcher follows a generation task until it finishes.
type GenerationWatcher interface {
	WaitForGeneration(ctx context.Context, taskID string, interval time.Duration, onUpdate func(api.GenerationStatus)) (*api.GenerationStatus, error)
}

// Options wires the services the dashboard reports on. Any of them may
// be nil; the report then skips that section.
type Options struct {
	Gallery      *gallery.Gallery
	Likes        *likes.Service
	Loader       *loader.Loader
	Generation   GenerationWatcher
	ReportPages  int
	TopN         int
	PollInterval time.Duration
}

// Dashboard provides the report page and generation socket.
type Dashboard struct {
	opts Options
	md   goldmark.Markdown
}

// New creates a new Dashboard.
func New(opts Options) *Dashboard {
	if opts.ReportPages <= 0 {
		opts.ReportPages = defaultReportPages
	}
	if opts.TopN <= 0 {
		opts.TopN = defaultTopN
	}
	return &Dashboard{
		opts: opts,
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				highlighting.NewHighlighting(
					highlighting.WithStyle("github"),
				),
			),
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
			),
		),
	}
}

// RegisterRoutes mounts all dashboard routes onto the given router.
func (d *Dashboard) RegisterRoutes(r chi.Router) {
	r.Get("/dashboard", d.ServeHTTP)
	d.RegisterAPI(r)
	d.RegisterSocket(r)
}

// RegisterAPI mounts the JSON stats endpoint.
func (d *Dashboard) RegisterAPI(r chi.Router) {
	r.Get("/api/dashboard/stats", d.handleStats)
}

// RegisterSocket mounts the generation progress WebSocket.
func (d *Dashboard) RegisterSocket(r chi.Router) {
	r.Get("/ws/generation/{taskId}", d.handleGenerationSocket)
}

// ServeHTTP serves the HTML report.
func (d *Dashboard) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.handleReport(w, r)
}
