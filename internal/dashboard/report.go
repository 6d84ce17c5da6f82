package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"

	"github.com/stixly/stixly/internal/api"
	"github.com/stixly/stixly/internal/gallery"
	"github.com/stixly/stixly/internal/loader"
)

// Report is everything the dashboard page shows.
type Report struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Summary     gallery.Summary `json:"summary"`
	Cache       *gallery.Stats  `json:"cache,omitempty"`
	LikedLocal  int             `json:"liked_local"`
	Pending     int             `json:"likes_syncing"`
	Loader      *loader.Stats   `json:"loader,omitempty"`
}

// Collect loads the first report pages of the gallery and summarizes them.
func (d *Dashboard) Collect(ctx context.Context) (*Report, error) {
	rep := &Report{GeneratedAt: time.Now().UTC()}

	var sets []api.StickerSet
	if g := d.opts.Gallery; g != nil {
		for page := 0; page < d.opts.ReportPages; page++ {
			pg, err := g.Load(ctx, gallery.Listing{}, page)
			if err != nil {
				return nil, fmt.Errorf("loading gallery page %d: %w", page, err)
			}
			sets = append(sets, pg.Content...)
			if page >= pg.TotalPages-1 {
				break
			}
		}
		st := g.Stats()
		rep.Cache = &st
	}
	rep.Summary = gallery.DashboardStats(sets, d.opts.TopN)

	if l := d.opts.Likes; l != nil {
		for _, st := range l.All() {
			if st.IsLiked {
				rep.LikedLocal++
			}
			if st.Syncing {
				rep.Pending++
			}
		}
	}
	if d.opts.Loader != nil {
		st := d.opts.Loader.Stats()
		rep.Loader = &st
	}
	return rep, nil
}

// Markdown renders the report as a markdown document.
func (r *Report) Markdown() string {
	var b strings.Builder
	s := r.Summary

	b.WriteString("# Sticker gallery\n\n")
	fmt.Fprintf(&b, "Generated %s.\n\n", r.GeneratedAt.Format(time.RFC1123))

	b.WriteString("## Totals\n\n")
	b.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Sticker sets | %d |\n", s.TotalSets)
	fmt.Fprintf(&b, "| Stickers | %d |\n", s.TotalStickers)
	fmt.Fprintf(&b, "| Animated | %d |\n", s.Animated)
	fmt.Fprintf(&b, "| Video | %d |\n", s.Video)
	fmt.Fprintf(&b, "| Likes | %d |\n", s.TotalLikes)
	fmt.Fprintf(&b, "| Liked by me | %d |\n", s.LikedByMe)
	fmt.Fprintf(&b, "| Liked locally | %d |\n", r.LikedLocal)
	fmt.Fprintf(&b, "| Likes syncing | %d |\n\n", r.Pending)

	if len(s.TopSets) > 0 {
		b.WriteString("## Most liked\n\n| # | Set | Likes |\n|---|---|---|\n")
		for i, set := range s.TopSets {
			fmt.Fprintf(&b, "| %d | %s | %d |\n", i+1, escapeCell(set.Title), set.Likes)
		}
		b.WriteString("\n")
	}

	if len(s.TopAuthors) > 0 {
		b.WriteString("## Top authors\n\n| # | Author | Sets | Likes |\n|---|---|---|---|\n")
		for i, a := range s.TopAuthors {
			name := a.Name
			if name == "" {
				name = fmt.Sprintf("id %d", a.AuthorID)
			}
			fmt.Fprintf(&b, "| %d | %s | %d | %d |\n", i+1, escapeCell(name), a.Sets, a.Likes)
		}
		b.WriteString("\n")
	}

	if len(s.Categories) > 0 {
		keys := make([]string, 0, len(s.Categories))
		for k := range s.Categories {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("## Categories\n\n| Category | Sets |\n|---|---|\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "| %s | %d |\n", escapeCell(k), s.Categories[k])
		}
		b.WriteString("\n")
	}

	if r.Cache != nil {
		b.WriteString("## Cache\n\n")
		fmt.Fprintf(&b, "Page cache: %s across %d listings.\n\n", r.Cache.Pages, r.Cache.Listings)
	}

	if raw, err := json.MarshalIndent(r, "", "  "); err == nil {
		b.WriteString("## Raw\n\n```json\n")
		b.Write(raw)
		b.WriteString("\n```\n")
	}
	return b.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// RenderHTML converts the report to a full HTML page.
func (d *Dashboard) RenderHTML(r *Report) ([]byte, error) {
	var body bytes.Buffer
	if err := d.md.Convert([]byte(r.Markdown()), &body); err != nil {
		return nil, fmt.Errorf("rendering markdown: %w", err)
	}

	var page bytes.Buffer
	err := pageTemplate.Execute(&page, pageData{
		Title:   "stixly dashboard",
		Content: template.HTML(body.String()),
	})
	if err != nil {
		return nil, fmt.Errorf("executing page template: %w", err)
	}
	return page.Bytes(), nil
}
