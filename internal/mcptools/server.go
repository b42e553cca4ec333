package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewMergeMCPServer creates an MCP server with all 6 merge tools registered.
func NewMergeMCPServer(svc *MergeService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "reconcile",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "capture_baselines",
		Description: "Record the pre-task state of the files a task is about to modify. Must be called before the task starts editing so later edits can be analyzed against the shared baseline.",
	}, svc.CaptureBaselines)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "record_modification",
		Description: "Record one task edit to a tracked file. Parses both versions with tree-sitter and stores the semantic changes (imports, functions, types) the task made relative to the baseline.",
	}, svc.RecordModification)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "preview_merge",
		Description: "Show what merging a set of tasks would do: the files involved, which tasks touched each, and whether the edits merge automatically or need resolution. Writes nothing.",
	}, svc.PreviewMerge)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "merge_tasks",
		Description: "Merge every file the given tasks modified. Compatible edits combine automatically; conflicting files go to the configured resolver. Returns a per-file report.",
	}, svc.MergeTasks)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "evolution_summary",
		Description: "Get aggregate statistics over all tracked files: files tracked, tasks seen, snapshots stored, and how many files have edits from more than one task.",
	}, svc.EvolutionSummary)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "conflicting_files",
		Description: "List the files where the given tasks made incompatible concurrent edits, with the tasks involved in each.",
	}, svc.ConflictingFiles)

	return server
}

// RunMCPServerStdio runs the MCP server on stdio transport, blocking until
// stdin is closed or the context is cancelled.
func RunMCPServerStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// RunMCPServer starts an HTTP server exposing the merge MCP tools.
func RunMCPServer(ctx context.Context, svc *MergeService, addr string) error {
	server := NewMergeMCPServer(svc)

	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
