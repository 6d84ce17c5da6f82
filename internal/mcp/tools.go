package mcp

import "github.com/mark3labs/mcp-go/mcp"

var searchStickerSetsTool = mcp.NewTool("search_sticker_sets",
	mcp.WithDescription("List or search published sticker sets. Results are cached locally for a few minutes."),
	mcp.WithString("query",
		mcp.Description("Text to search for in set titles and names. Leave empty to browse."),
	),
	mcp.WithNumber("page",
		mcp.Description("Zero-based page number (default 0)"),
	),
	mcp.WithString("sort",
		mcp.Description("Sort order when browsing"),
		mcp.Enum("createdAt", "likesCount"),
	),
	mcp.WithString("match",
		mcp.Description("Comma-separated glob patterns matched against set names and titles, e.g. \"*cat*\""),
	),
)

var getStickerSetTool = mcp.NewTool("get_sticker_set",
	mcp.WithDescription("Get one sticker set with its stickers, author, categories and like count."),
	mcp.WithNumber("id",
		mcp.Required(),
		mcp.Description("Sticker set ID"),
	),
)

var getLeaderboardTool = mcp.NewTool("get_leaderboard",
	mcp.WithDescription("Get the leaderboard of users or authors ranked by sticker set count."),
	mcp.WithString("kind",
		mcp.Description("Which leaderboard (default users)"),
		mcp.Enum("users", "authors"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Number of rows (default 10)"),
	),
)

var listCategoriesTool = mcp.NewTool("list_categories",
	mcp.WithDescription("List the sticker set categories that can be used to filter the gallery."),
)

var findSimilarTool = mcp.NewTool("find_similar_sticker_sets",
	mcp.WithDescription("Find indexed sticker sets semantically close to a description or to another set."),
	mcp.WithString("query",
		mcp.Description("Free-text description, e.g. \"sleepy cartoon cats\""),
	),
	mcp.WithNumber("set_id",
		mcp.Description("Find sets similar to this set instead of a query"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of results (default 10)"),
	),
)
