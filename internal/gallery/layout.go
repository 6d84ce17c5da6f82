package gallery

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
)

// rowGap is the vertical gap between grid rows, in pixels.
const rowGap = 8

// Range is a half-open [Start, End) span of item indexes.
type Range struct {
	Start     int `json:"start"`
	End       int `json:"end"`
	PerRow    int `json:"per_row"`
	TotalRows int `json:"total_rows"`
	OffsetY   int `json:"offset_y"`
}

// Len is the number of items in the range.
func (r Range) Len() int { return r.End - r.Start }

// VisibleRange computes which grid items to render for a scroll position.
// columns <= 0 means three per row. overscan extra rows are rendered
// below the viewport.
func VisibleRange(scrollTop, viewportHeight, itemHeight float64, columns, total, overscan int) Range {
	if columns <= 0 {
		columns = 3
	}
	if total <= 0 || itemHeight <= 0 {
		return Range{PerRow: columns}
	}
	if scrollTop < 0 {
		scrollTop = 0
	}
	rowHeight := itemHeight + rowGap
	totalRows := (total + columns - 1) / columns

	startRow := int(math.Floor(scrollTop / rowHeight))
	endRow := min(startRow+int(math.Ceil(viewportHeight/rowHeight))+overscan, totalRows)

	start := max(0, startRow*columns)
	end := min(endRow*columns, total)
	if start > end {
		start = end
	}
	return Range{
		Start:     start,
		End:       end,
		PerRow:    columns,
		TotalRows: totalRows,
		OffsetY:   (start / columns) * int(rowHeight),
	}
}

// ColumnsForWidth is how many 140px cards fit in width. A width too
// narrow for one card, or unknown, gives three.
func ColumnsForWidth(width float64) int {
	n := int(width / 140)
	if n <= 0 {
		return 3
	}
	return n
}

// DefaultLoadMoreThreshold is the distance from the bottom, in pixels, at
// which the next page is requested.
const DefaultLoadMoreThreshold = 100

// ShouldLoadMore reports whether the viewport is within threshold pixels
// of the end of the content.
func ShouldLoadMore(scrollTop, viewportHeight, contentHeight, threshold float64) bool {
	return scrollTop+viewportHeight >= contentHeight-threshold
}

const (
	defaultItemHeight = 140
	defaultOverscan   = 2
)

// Layout is the grid state for one scroll position.
type Layout struct {
	Columns  int   `json:"columns"`
	Visible  Range `json:"visible"`
	LoadMore bool  `json:"load_more"`
}

// handleLayout answers which items a client should render. Missing
// numbers are zero; item_height and overscan have defaults.
func handleLayout(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	num := func(k string, def float64) float64 {
		v, err := strconv.ParseFloat(q.Get(k), 64)
		if err != nil || v < 0 {
			return def
		}
		return v
	}
	scrollTop := num("scroll_top", 0)
	viewport := num("viewport_height", 0)
	itemHeight := num("item_height", defaultItemHeight)
	total := int(num("total", 0))
	overscan := int(num("overscan", defaultOverscan))

	cols := ColumnsForWidth(num("width", 0))
	vis := VisibleRange(scrollTop, viewport, itemHeight, cols, total, overscan)
	content := num("content_height", float64(vis.TotalRows)*(itemHeight+rowGap))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(Layout{
		Columns:  cols,
		Visible:  vis,
		LoadMore: ShouldLoadMore(scrollTop, viewport, content, DefaultLoadMoreThreshold),
	})
}
