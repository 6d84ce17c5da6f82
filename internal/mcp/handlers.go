package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/stixly/stixly/internal/api"
	"github.com/stixly/stixly/internal/gallery"
	"github.com/stixly/stixly/internal/similar"
)

func (s *Server) handleSearchStickerSets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	l := gallery.Listing{Query: strings.TrimSpace(request.GetString("query", ""))}
	if sort := request.GetString("sort", ""); sort != "" {
		l.Filter.Sort = sort
		l.Filter.Direction = "DESC"
	}
	page := request.GetInt("page", 0)
	if page < 0 {
		page = 0
	}

	pg, err := s.gallery.Load(ctx, l, page)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading sticker sets: %v", err)), nil
	}

	sets := pg.Content
	if match := request.GetString("match", ""); match != "" {
		sets, err = gallery.MatchNames(sets, strings.Split(match, ","))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid match pattern: %v", err)), nil
		}
	}

	if len(sets) == 0 {
		return mcp.NewToolResultText("No sticker sets found."), nil
	}
	return mcp.NewToolResultText(formatSetList(sets, pg.Number, pg.TotalPages)), nil
}

func (s *Server) handleGetStickerSet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := request.GetInt("id", 0)
	if id <= 0 {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}

	set, err := s.catalog.GetStickerSet(ctx, int64(id))
	if errors.Is(err, api.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("sticker set %d not found", id)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading sticker set: %v", err)), nil
	}
	return mcp.NewToolResultText(formatSet(*set)), nil
}

func (s *Server) handleGetLeaderboard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := request.GetInt("limit", 10)
	if limit <= 0 {
		limit = 10
	}

	var sb strings.Builder
	switch kind := request.GetString("kind", "users"); kind {
	case "users":
		lb, err := s.catalog.GetUsersLeaderboard(ctx, 0, limit)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("loading leaderboard: %v", err)), nil
		}
		sb.WriteString("Top users by sticker sets:\n")
		for i, u := range lb.Content {
			fmt.Fprintf(&sb, "%d. %s: %d sets (%d public)\n", i+1, personName(u.FirstName, u.LastName, u.Username), u.TotalCount, u.PublicCount)
		}
	case "authors":
		lb, err := s.catalog.GetAuthorsLeaderboard(ctx, 0, limit)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("loading leaderboard: %v", err)), nil
		}
		sb.WriteString("Top authors by sticker sets:\n")
		for i, a := range lb.Content {
			fmt.Fprintf(&sb, "%d. %s (id %d): %d sets (%d public)\n", i+1, personName(a.FirstName, a.LastName, a.Username), a.AuthorID, a.TotalCount, a.PublicCount)
		}
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown leaderboard %q: use users or authors", kind)), nil
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleListCategories(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cats, err := s.catalog.GetCategories(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading categories: %v", err)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d categories:\n", len(cats))
	for _, c := range cats {
		if !c.IsActive {
			continue
		}
		fmt.Fprintf(&sb, "- %s (%s)", c.Name, c.Key)
		if c.Description != "" {
			fmt.Fprintf(&sb, ": %s", c.Description)
		}
		sb.WriteString("\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleFindSimilar(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := request.GetInt("limit", 10)
	query := strings.TrimSpace(request.GetString("query", ""))
	setID := request.GetInt("set_id", 0)

	var (
		matches []similar.Match
		err     error
	)
	switch {
	case setID > 0:
		matches, err = s.index.Like(ctx, int64(setID), limit, nil)
	case query != "":
		matches, err = s.index.Search(ctx, query, limit, nil)
	default:
		return mcp.NewToolResultError("provide either query or set_id"), nil
	}
	if errors.Is(err, similar.ErrUnknownSet) {
		return mcp.NewToolResultError(fmt.Sprintf("sticker set %d is not indexed. Run `stixly similar --sync` first.", setID)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("similarity search failed: %v", err)), nil
	}

	if len(matches) == 0 {
		return mcp.NewToolResultText("No similar sets found. The index may be empty; run `stixly similar --sync` to build it."), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d similar set(s):\n", len(matches))
	for i, m := range matches {
		fmt.Fprintf(&sb, "%d. %s (id %d, %s) similarity %.1f%%\n", i+1, m.Title, m.SetID, m.Name, m.Similarity*100)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func personName(first, last string, username *string) string {
	name := strings.TrimSpace(first + " " + last)
	if username != nil && *username != "" {
		if name == "" {
			return "@" + *username
		}
		name += " (@" + *username + ")"
	}
	if name == "" {
		return "anonymous"
	}
	return name
}

// formatSetList renders one gallery page for agent consumption.
func formatSetList(sets []api.StickerSet, page, totalPages int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Page %d of %d, %d set(s):\n", page+1, max(totalPages, 1), len(sets))
	for _, set := range sets {
		likes, _ := set.LikeCount()
		fmt.Fprintf(&sb, "- [%d] %s (%s), %d stickers, %d likes\n", set.ID, set.Title, set.Name, len(set.Stickers()), likes)
	}
	return sb.String()
}

func formatSet(set api.StickerSet) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n", set.Title)
	fmt.Fprintf(&sb, "ID: %d\nName: %s\nLink: https://t.me/addstickers/%s\n", set.ID, set.Name, set.Name)

	if author := personName(set.FirstName, set.LastName, &set.Username); author != "anonymous" {
		fmt.Fprintf(&sb, "Author: %s\n", author)
	}
	if likes, ok := set.LikeCount(); ok {
		fmt.Fprintf(&sb, "Likes: %d\n", likes)
	}
	if len(set.Categories) > 0 {
		names := make([]string, len(set.Categories))
		for i, c := range set.Categories {
			names[i] = c.Name
		}
		fmt.Fprintf(&sb, "Categories: %s\n", strings.Join(names, ", "))
	}

	stickers := set.Stickers()
	fmt.Fprintf(&sb, "Stickers: %d\n", len(stickers))
	for i, st := range stickers {
		kind := "static"
		switch {
		case st.IsVideo:
			kind = "video"
		case st.IsAnimated:
			kind = "animated"
		}
		fmt.Fprintf(&sb, "  %d. %s %s (%s)\n", i+1, st.Emoji, st.FileID, kind)
	}
	return sb.String()
}
