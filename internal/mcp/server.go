// Package mcp exposes the sticker gallery to agents as MCP tools over
// stdio.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/stixly/stixly/internal/api"
	"github.com/stixly/stixly/internal/gallery"
	"github.com/stixly/stixly/internal/similar"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Catalog is the part of the API client the tools read directly.
type Catalog interface {
	GetStickerSet(ctx context.Context, id int64) (*api.StickerSet, error)
	GetCategories(ctx context.Context) ([]api.Category, error)
	GetUsersLeaderboard(ctx context.Context, page, size int) (*api.Leaderboard[api.LeaderboardUser], error)
	GetAuthorsLeaderboard(ctx context.Context, page, size int) (*api.Leaderboard[api.LeaderboardAuthor], error)
}

// Server wraps an MCP server that exposes sticker gallery tools.
type Server struct {
	catalog Catalog
	gallery *gallery.Gallery
	index   *similar.Index
	mcp     *server.MCPServer
}

// NewServer creates a new MCP server. index may be nil, in which case
// find_similar_sticker_sets is not offered.
func NewServer(catalog Catalog, g *gallery.Gallery, index *similar.Index) *Server {
	s := &Server{
		catalog: catalog,
		gallery: g,
		index:   index,
	}

	s.mcp = server.NewMCPServer(
		"stixly",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

func (s *Server) registerTools() {
	s.mcp.AddTool(searchStickerSetsTool, s.handleSearchStickerSets)
	s.mcp.AddTool(getStickerSetTool, s.handleGetStickerSet)
	s.mcp.AddTool(getLeaderboardTool, s.handleGetLeaderboard)
	s.mcp.AddTool(listCategoriesTool, s.handleListCategories)
	if s.index != nil {
		s.mcp.AddTool(findSimilarTool, s.handleFindSimilar)
	}
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
