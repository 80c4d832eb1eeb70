package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/leonardcser/web-cache/internal/tracker"
)

// WebFetchHandler returns the MCP tool handler for the "web-fetch" tool.
func WebFetchHandler(pages *tracker.CachingFetcher) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if ctx.Err() != nil {
			return mcp.NewToolResultError(ctx.Err().Error()), nil
		}
		url, err := req.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		content, err := pages.Get(ctx, url)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		n, err := pages.Count(ctx, url)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent(content),
				mcp.NewTextContent(formatCount(url, n)),
			},
		}, nil
	}
}

func formatCount(url string, n int64) string {
	return fmt.Sprintf("%s: %d request(s) since last fetch", url, n)
}

// PageCountHandler returns the MCP tool handler for the "page-count" tool.
func PageCountHandler(pages *tracker.CachingFetcher) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := req.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		n, err := pages.Count(ctx, url)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(formatCount(url, n)), nil
	}
}
