package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"ragdesk/internal/application"
	"ragdesk/internal/application/collections"
	"ragdesk/internal/domain"
)

// RegisterPageTools adds the batch import of search or deep-crawl results
func RegisterPageTools(s *server.MCPServer, ops *collections.Operations) {
	s.AddTool(addPagesTool(), addPagesHandler(ops))
}

// pageArg mirrors domain.PageResult; a missing success counts as true
type pageArg struct {
	URL      string   `json:"url"`
	Title    string   `json:"title"`
	Markdown string   `json:"markdown"`
	Score    *float64 `json:"score"`
	Success  *bool    `json:"success"`
	Error    string   `json:"error"`
}

func (p pageArg) result() domain.PageResult {
	return domain.PageResult{
		URL:      p.URL,
		Title:    p.Title,
		Markdown: p.Markdown,
		Score:    p.Score,
		Success:  p.Success == nil || *p.Success,
		Error:    p.Error,
	}
}

// --- add_pages ---

func addPagesTool() mcp.Tool {
	return mcp.NewTool("add_pages",
		mcp.WithDescription("Save search or deep-crawl results as markdown files. Each file starts with "+
			"YAML front matter (title, source_url, crawled_at, score). Entries with success=false are skipped."),
		mcp.WithString("collection",
			mcp.Description("Collection name"),
			mcp.Required(),
		),
		mcp.WithString("folder",
			mcp.Description("Folder to store the pages in"),
		),
		mcp.WithArray("pages",
			mcp.Description("Pages to save"),
			mcp.Required(),
			mcp.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"url":      map[string]any{"type": "string"},
					"title":    map[string]any{"type": "string"},
					"markdown": map[string]any{"type": "string"},
					"score":    map[string]any{"type": "number"},
					"success":  map[string]any{"type": "boolean"},
				},
				"required": []string{"url", "markdown"},
			}),
		),
	)
}

func addPagesHandler(ops *collections.Operations) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		collection, err := req.RequireString("collection")
		if err != nil {
			return toolError(err)
		}
		pages, err := decodePages(req.GetArguments()["pages"])
		if err != nil {
			return toolError(err)
		}
		res, err := ops.AddMultiplePagesToCollection(ctx, collection, pages, req.GetString("folder", ""))
		if err != nil {
			return toolError(err)
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Saved %d pages to %s", res.SavedCount, collection)
		for _, e := range res.Errors {
			fmt.Fprintf(&sb, "\n  failed: %s", e)
		}
		if res.SavedCount == 0 && len(res.Errors) > 0 {
			return mcp.NewToolResultError(sb.String()), nil
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// decodePages converts the raw tool argument into page results
func decodePages(raw any) ([]domain.PageResult, error) {
	if raw == nil {
		return nil, &application.ValidationError{Field: "pages", Message: "pages is required"}
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var args []pageArg
	if err := json.Unmarshal(data, &args); err != nil {
		return nil, &application.ValidationError{Field: "pages", Message: fmt.Sprintf("pages must be a list of objects: %v", err)}
	}
	pages := make([]domain.PageResult, len(args))
	for i, a := range args {
		pages[i] = a.result()
	}
	return pages, nil
}
