package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/frontdeskhq/frontdesk/internal/storage"
)

// MCPDeps holds dependencies for the MCP server. It reuses the HTTP
// layer's AppDeps wiring.
type MCPDeps struct {
	AppDeps
}

// NewMCPServer creates an MCP server exposing the supervisor workflow to
// agent clients: inspect pending requests, resolve them, and manage the
// knowledge base.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"frontdesk",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("frontdesk — escalation queue for an AI receptionist. Pending requests are questions the assistant could not answer; resolving one delivers the answer back to the waiting caller."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("pending_requests",
			mcp.WithDescription("List help requests currently waiting for a supervisor answer, oldest first."),
		),
		mcpPendingRequests(deps),
	)

	s.AddTool(
		mcp.NewTool("resolve_request",
			mcp.WithDescription("Answer a pending help request. The answer is queued for delivery to the caller and can optionally be taught to the knowledge base."),
			mcp.WithString("id", mcp.Description("Request ID to resolve"), mcp.Required()),
			mcp.WithString("answer", mcp.Description("The answer text"), mcp.Required()),
			mcp.WithBoolean("teach", mcp.Description("Also store the answer in the knowledge base (default true)")),
		),
		mcpResolveRequest(deps),
	)

	s.AddTool(
		mcp.NewTool("reopen_request",
			mcp.WithDescription("Return a resolved or unresolved request to pending with a fresh deadline."),
			mcp.WithString("id", mcp.Description("Request ID to reopen"), mcp.Required()),
		),
		mcpReopenRequest(deps),
	)

	s.AddTool(
		mcp.NewTool("knowledge_search",
			mcp.WithDescription("Look up the taught answer for a question, if any."),
			mcp.WithString("question", mcp.Description("Question text to look up"), mcp.Required()),
		),
		mcpKnowledgeSearch(deps),
	)

	s.AddTool(
		mcp.NewTool("teach_answer",
			mcp.WithDescription("Store an answer in the knowledge base without going through a request."),
			mcp.WithString("question", mcp.Description("Question text"), mcp.Required()),
			mcp.WithString("answer", mcp.Description("Answer text"), mcp.Required()),
		),
		mcpTeachAnswer(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"frontdesk://stats",
			"Queue Statistics",
			mcp.WithResourceDescription("Request counts by status, pending notifications, and knowledge base size"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceStats(deps),
	)

	return s
}

func mcpPendingRequests(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		pending, err := deps.Store.ListPendingHelpRequests()
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list pending requests: %v", err)), nil
		}
		if pending == nil {
			pending = []storage.HelpRequest{}
		}

		b, err := json.Marshal(pending)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal requests: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResolveRequest(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcpError("id is required"), nil
		}
		answer, err := req.RequireString("answer")
		if err != nil {
			return mcpError("answer is required"), nil
		}
		teach := req.GetBool("teach", true)

		resolved, err := deps.Manager.Resolve(ctx, id, answer, teach)
		if errors.Is(err, storage.ErrNotFound) {
			return mcpError(fmt.Sprintf("request %s not found", id)), nil
		}
		if errors.Is(err, storage.ErrNotPending) {
			return mcpError(fmt.Sprintf("request %s is not pending", id)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("failed to resolve: %v", err)), nil
		}

		return mcpText(fmt.Sprintf("Resolved %s for requester %s; answer queued for delivery", resolved.ID, resolved.RequesterID)), nil
	}
}

func mcpReopenRequest(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcpError("id is required"), nil
		}

		err = deps.Manager.Reopen(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			return mcpError(fmt.Sprintf("request %s not found", id)), nil
		}
		if errors.Is(err, storage.ErrNotTerminal) {
			return mcpError(fmt.Sprintf("request %s is still pending", id)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("failed to reopen: %v", err)), nil
		}

		return mcpText(fmt.Sprintf("Reopened %s", id)), nil
	}
}

func mcpKnowledgeSearch(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil {
			return mcpError("question is required"), nil
		}

		answer, ok, err := deps.Knowledge.Lookup(ctx, question)
		if err != nil {
			return mcpError(fmt.Sprintf("lookup failed: %v", err)), nil
		}
		if !ok {
			return mcpText("No taught answer for that question."), nil
		}
		return mcpText(answer), nil
	}
}

func mcpTeachAnswer(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil {
			return mcpError("question is required"), nil
		}
		answer, err := req.RequireString("answer")
		if err != nil {
			return mcpError("answer is required"), nil
		}

		if err := deps.Knowledge.Teach(ctx, question, answer); err != nil {
			return mcpError(fmt.Sprintf("failed to teach: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Taught answer for %q", question)), nil
	}
}

func mcpResourceStats(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		stats, err := gatherStats(deps.AppDeps)
		if err != nil {
			return nil, fmt.Errorf("failed to gather stats: %w", err)
		}

		b, err := json.Marshal(stats)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal stats: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
