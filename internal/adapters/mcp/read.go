// Package mcp exposes collections, files and vector sync as MCP tools.
package mcp

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"ragdesk/internal/application"
	"ragdesk/internal/domain"
	"ragdesk/internal/ports"
)

// RegisterReadTools adds the read-only tools to the MCP server.
func RegisterReadTools(s *server.MCPServer, gw ports.Gateway) {
	s.AddTool(listCollectionsTool(), listCollectionsHandler(gw))
	s.AddTool(listFilesTool(), listFilesHandler(gw))
	s.AddTool(readFileTool(), readFileHandler(gw))
	s.AddTool(syncStatusTool(), syncStatusHandler(gw))
}

// --- list_collections ---

func listCollectionsTool() mcp.Tool {
	return mcp.NewTool("list_collections",
		mcp.WithDescription("List document collections with file counts, sizes and vector sync state."),
	)
}

func listCollectionsHandler(gw ports.Gateway) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		list, err := gw.ListCollections(ctx)
		if err != nil {
			return toolError(err)
		}
		statuses, err := gw.ListSyncStatuses(ctx)
		if err != nil {
			statuses = nil
		}
		if len(list) == 0 {
			return mcp.NewToolResultText("No collections."), nil
		}

		var sb strings.Builder
		for _, c := range list {
			fmt.Fprintf(&sb, "%s  %d files, %s", c.Name, c.FileCount, humanize.Bytes(uint64(max(c.Metadata.TotalSize, 0))))
			if st, ok := statuses[c.Name]; ok {
				fmt.Fprintf(&sb, ", %s", st.Status)
			}
			if c.Description != "" {
				fmt.Fprintf(&sb, "  (%s)", c.Description)
			}
			sb.WriteByte('\n')
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// --- list_files ---

func listFilesTool() mcp.Tool {
	return mcp.NewTool("list_files",
		mcp.WithDescription("Show the file tree of a collection. Folders end with '/'."),
		mcp.WithString("collection",
			mcp.Description("Collection name"),
			mcp.Required(),
		),
		mcp.WithString("filter",
			mcp.Description("Only keep files and folders whose name contains this text"),
		),
	)
}

func listFilesHandler(gw ports.Gateway) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		collection, err := req.RequireString("collection")
		if err != nil {
			return toolError(err)
		}
		listing, err := gw.ListFiles(ctx, collection)
		if err != nil {
			return toolError(err)
		}
		tree := domain.FilterTree(domain.BuildTree(listing.FileNodes(), nil), req.GetString("filter", ""))
		if len(tree) == 0 {
			return mcp.NewToolResultText("No files."), nil
		}
		return mcp.NewToolResultText(domain.Outline(tree)), nil
	}
}

// --- read_file ---

func readFileTool() mcp.Tool {
	return mcp.NewTool("read_file",
		mcp.WithDescription("Read the content of a file in a collection."),
		mcp.WithString("collection",
			mcp.Description("Collection name"),
			mcp.Required(),
		),
		mcp.WithString("path",
			mcp.Description("File path inside the collection, e.g. guides/setup.md"),
			mcp.Required(),
		),
	)
}

func readFileHandler(gw ports.Gateway) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		collection, path, err := collectionAndPath(req)
		if err != nil {
			return toolError(err)
		}
		folder, name := domain.SplitFilePath(path)
		content, err := gw.ReadFile(ctx, collection, name, folder)
		if err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(content), nil
	}
}

// --- sync_status ---

func syncStatusTool() mcp.Tool {
	return mcp.NewTool("sync_status",
		mcp.WithDescription("Show the vector sync status of one collection, or of all collections."),
		mcp.WithString("collection",
			mcp.Description("Collection name. Omit to list every collection."),
		),
	)
}

func syncStatusHandler(gw ports.Gateway) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if collection := req.GetString("collection", ""); collection != "" {
			st, err := gw.GetSyncStatus(ctx, collection)
			if err != nil {
				return toolError(err)
			}
			return mcp.NewToolResultText(FormatStatus(collection, *st)), nil
		}

		all, err := gw.ListSyncStatuses(ctx)
		if err != nil {
			return toolError(err)
		}
		if len(all) == 0 {
			return mcp.NewToolResultText("No collections."), nil
		}
		names := make([]string, 0, len(all))
		for name := range all {
			names = append(names, name)
		}
		sort.Strings(names)
		var sb strings.Builder
		for _, name := range names {
			sb.WriteString(FormatStatus(name, all[name]))
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// --- helpers ---

func toolError(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(application.UserMessage(err)), nil
}

func collectionAndPath(req mcp.CallToolRequest) (collection, path string, err error) {
	if collection, err = req.RequireString("collection"); err != nil {
		return "", "", err
	}
	if path, err = req.RequireString("path"); err != nil {
		return "", "", err
	}
	path = strings.Trim(path, "/")
	if path == "" {
		return "", "", fmt.Errorf("path is required")
	}
	return collection, path, nil
}

// FormatStatus renders a sync status as a short text block
func FormatStatus(collection string, st domain.VectorSyncStatus) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s", collection, st.Status)
	if !st.SyncEnabled {
		sb.WriteString(" (disabled)")
	}
	if st.IsSyncing() {
		fmt.Fprintf(&sb, " %.0f%%", st.Progress()*100)
	}
	fmt.Fprintf(&sb, "\n  files %d/%d, chunks %d, changed %d, health %.2f\n",
		st.SyncedFiles, st.TotalFiles, st.ChunkCount, st.ChangedFilesCount, st.SyncHealthScore)
	if st.LastSync != nil {
		fmt.Fprintf(&sb, "  last sync %s\n", humanize.Time(*st.LastSync))
	}
	for _, e := range st.Errors {
		fmt.Fprintf(&sb, "  error: %s\n", e)
	}
	for _, w := range st.Warnings {
		fmt.Fprintf(&sb, "  warning: %s\n", w)
	}
	return sb.String()
}
