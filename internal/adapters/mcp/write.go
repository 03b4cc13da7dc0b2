package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"ragdesk/internal/application"
	"ragdesk/internal/application/vectorsync"
	"ragdesk/internal/domain"
	"ragdesk/internal/ports"
)

// RegisterWriteTools adds the tools that change collections, files and
// embeddings. Sync requests go through the coordinator so that wait=true
// can follow the job to its end.
func RegisterWriteTools(s *server.MCPServer, gw ports.Gateway, sync *vectorsync.Coordinator) {
	s.AddTool(createCollectionTool(), createCollectionHandler(gw))
	s.AddTool(deleteCollectionTool(), deleteCollectionHandler(gw))
	s.AddTool(writeFileTool(), writeFileHandler(gw))
	s.AddTool(deleteFileTool(), deleteFileHandler(gw))
	s.AddTool(crawlPageTool(), crawlPageHandler(gw))
	s.AddTool(syncCollectionTool(), syncCollectionHandler(sync))
	s.AddTool(setSyncEnabledTool(), setSyncEnabledHandler(sync))
	s.AddTool(deleteVectorsTool(), deleteVectorsHandler(sync))
}

// --- create_collection ---

func createCollectionTool() mcp.Tool {
	return mcp.NewTool("create_collection",
		mcp.WithDescription("Create an empty document collection."),
		mcp.WithString("name",
			mcp.Description("Collection name, without slashes"),
			mcp.Required(),
		),
		mcp.WithString("description",
			mcp.Description("Optional description"),
		),
	)
}

func createCollectionHandler(gw ports.Gateway) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name := req.GetString("name", "")
		if err := application.ValidateCollectionName(name); err != nil {
			return toolError(err)
		}
		c, err := gw.CreateCollection(ctx, name, req.GetString("description", ""))
		if err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(fmt.Sprintf("Created collection %s", c.Name)), nil
	}
}

// --- delete_collection ---

func deleteCollectionTool() mcp.Tool {
	return mcp.NewTool("delete_collection",
		mcp.WithDescription("Delete a collection with all its files and vectors."),
		mcp.WithString("name",
			mcp.Description("Collection name"),
			mcp.Required(),
		),
	)
}

func deleteCollectionHandler(gw ports.Gateway) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return toolError(err)
		}
		if err := gw.DeleteCollection(ctx, name); err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(fmt.Sprintf("Deleted collection %s", name)), nil
	}
}

// --- write_file ---

func writeFileTool() mcp.Tool {
	return mcp.NewTool("write_file",
		mcp.WithDescription("Create a file or replace the content of an existing one."),
		mcp.WithString("collection",
			mcp.Description("Collection name"),
			mcp.Required(),
		),
		mcp.WithString("path",
			mcp.Description("File path inside the collection, e.g. guides/setup.md"),
			mcp.Required(),
		),
		mcp.WithString("content",
			mcp.Description("Full file content"),
			mcp.Required(),
		),
	)
}

func writeFileHandler(gw ports.Gateway) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		collection, path, err := collectionAndPath(req)
		if err != nil {
			return toolError(err)
		}
		content := req.GetString("content", "")
		folder, name := domain.SplitFilePath(path)
		if err := errors.Join(application.ValidateFilename(name), application.ValidateFolder(folder)); err != nil {
			return toolError(err)
		}

		_, err = gw.ReadFile(ctx, collection, name, folder)
		switch {
		case err == nil:
			if err := gw.UpdateFile(ctx, collection, name, folder, content); err != nil {
				return toolError(err)
			}
			return mcp.NewToolResultText(fmt.Sprintf("Updated %s/%s", collection, path)), nil
		case errors.Is(err, application.ErrNotFound):
			save := domain.SaveFileRequest{Filename: name, Folder: folder, Content: content}
			if _, err := gw.SaveFile(ctx, collection, save); err != nil {
				return toolError(err)
			}
			return mcp.NewToolResultText(fmt.Sprintf("Created %s/%s", collection, path)), nil
		default:
			return toolError(err)
		}
	}
}

// --- delete_file ---

func deleteFileTool() mcp.Tool {
	return mcp.NewTool("delete_file",
		mcp.WithDescription("Delete a file from a collection."),
		mcp.WithString("collection",
			mcp.Description("Collection name"),
			mcp.Required(),
		),
		mcp.WithString("path",
			mcp.Description("File path inside the collection"),
			mcp.Required(),
		),
	)
}

func deleteFileHandler(gw ports.Gateway) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		collection, path, err := collectionAndPath(req)
		if err != nil {
			return toolError(err)
		}
		folder, name := domain.SplitFilePath(path)
		if err := gw.DeleteFile(ctx, collection, name, folder); err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(fmt.Sprintf("Deleted %s/%s", collection, path)), nil
	}
}

// --- crawl_page ---

func crawlPageTool() mcp.Tool {
	return mcp.NewTool("crawl_page",
		mcp.WithDescription("Fetch a web page and store it as markdown in a collection."),
		mcp.WithString("collection",
			mcp.Description("Collection name"),
			mcp.Required(),
		),
		mcp.WithString("url",
			mcp.Description("http or https URL"),
			mcp.Required(),
		),
		mcp.WithString("folder",
			mcp.Description("Folder to store the page in"),
		),
	)
}

func crawlPageHandler(gw ports.Gateway) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		collection, err := req.RequireString("collection")
		if err != nil {
			return toolError(err)
		}
		crawl := domain.CrawlRequest{URL: req.GetString("url", ""), Folder: req.GetString("folder", "")}
		if err := errors.Join(application.ValidateURL(crawl.URL), application.ValidateFolder(crawl.Folder)); err != nil {
			return toolError(err)
		}
		res, err := gw.CrawlToCollection(ctx, collection, crawl)
		if err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(fmt.Sprintf("Stored %s as %s (%d bytes)",
			res.URL, domain.FilePath(res.Folder, res.Filename), res.ContentLength)), nil
	}
}

// --- sync_collection ---

func syncCollectionTool() mcp.Tool {
	return mcp.NewTool("sync_collection",
		mcp.WithDescription("Start embedding a collection. With wait=true the call returns when the job has finished."),
		mcp.WithString("collection",
			mcp.Description("Collection name"),
			mcp.Required(),
		),
		mcp.WithString("chunking",
			mcp.Description("Chunking strategy; the backend picks one per file when omitted"),
			mcp.Enum(string(domain.ChunkingMarkdown), string(domain.ChunkingFixed)),
		),
		mcp.WithBoolean("force",
			mcp.Description("Reprocess every file, not only the changed ones"),
		),
		mcp.WithBoolean("wait",
			mcp.Description("Wait for the job to finish"),
		),
	)
}

func syncCollectionHandler(sync *vectorsync.Coordinator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		collection, err := req.RequireString("collection")
		if err != nil {
			return toolError(err)
		}
		syncReq := domain.SyncRequest{
			ChunkingStrategy: domain.ChunkingStrategy(req.GetString("chunking", "")),
			ForceReprocess:   req.GetBool("force", false),
		}
		if err := sync.SyncCollection(ctx, collection, syncReq); err != nil {
			return toolError(err)
		}
		if !req.GetBool("wait", false) {
			return mcp.NewToolResultText(fmt.Sprintf("Sync started for %s", collection)), nil
		}
		st, err := sync.WaitForSync(ctx, collection)
		if err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(FormatStatus(collection, st)), nil
	}
}

// --- set_sync_enabled ---

func setSyncEnabledTool() mcp.Tool {
	return mcp.NewTool("set_sync_enabled",
		mcp.WithDescription("Enable or disable vector sync for a collection."),
		mcp.WithString("collection",
			mcp.Description("Collection name"),
			mcp.Required(),
		),
		mcp.WithBoolean("enabled",
			mcp.Description("true to enable, false to disable"),
			mcp.Required(),
		),
	)
}

func setSyncEnabledHandler(sync *vectorsync.Coordinator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		collection, err := req.RequireString("collection")
		if err != nil {
			return toolError(err)
		}
		enabled, err := req.RequireBool("enabled")
		if err != nil {
			return toolError(err)
		}
		if enabled {
			err = sync.EnableSync(ctx, collection)
		} else {
			err = sync.DisableSync(ctx, collection)
		}
		if err != nil {
			return toolError(err)
		}
		st, _ := sync.GetSyncStatus(collection)
		return mcp.NewToolResultText(FormatStatus(collection, st)), nil
	}
}

// --- delete_vectors ---

func deleteVectorsTool() mcp.Tool {
	return mcp.NewTool("delete_vectors",
		mcp.WithDescription("Delete the embeddings of a collection. Files are kept."),
		mcp.WithString("collection",
			mcp.Description("Collection name"),
			mcp.Required(),
		),
	)
}

func deleteVectorsHandler(sync *vectorsync.Coordinator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		collection, err := req.RequireString("collection")
		if err != nil {
			return toolError(err)
		}
		if err := sync.DeleteVectors(ctx, collection); err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(fmt.Sprintf("Deleted vectors of %s", collection)), nil
	}
}
