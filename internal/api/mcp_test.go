package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/frontdeskhq/frontdesk/internal/escalation"
	"github.com/frontdeskhq/frontdesk/internal/knowledge"
	"github.com/frontdeskhq/frontdesk/internal/notify"
	"github.com/frontdeskhq/frontdesk/internal/storage"
)

func newTestMCPDeps(t *testing.T) (MCPDeps, *storage.Store) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return MCPDeps{AppDeps: AppDeps{
		Store:     store,
		Manager:   escalation.NewManager(store, time.Hour, slog.Default()),
		Knowledge: knowledge.NewBase(store),
		Channel:   notify.NewChannel(store),
	}}, store
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func TestMCPTool_PendingRequests(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	ctx := context.Background()

	if _, err := deps.Manager.Create(ctx, "caller-1", "do you deliver", "do you deliver"); err != nil {
		t.Fatal(err)
	}

	result, err := mcpPendingRequests(deps)(ctx, makeCallToolRequest("pending_requests", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", toolText(t, result))
	}

	var pending []storage.HelpRequest
	if err := json.Unmarshal([]byte(toolText(t, result)), &pending); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if len(pending) != 1 || pending[0].Question != "do you deliver" {
		t.Fatalf("pending = %+v", pending)
	}
}

func TestMCPTool_ResolveRequest(t *testing.T) {
	deps, store := newTestMCPDeps(t)
	ctx := context.Background()

	req, err := deps.Manager.Create(ctx, "caller-1", "do you deliver", "do you deliver")
	if err != nil {
		t.Fatal(err)
	}

	result, err := mcpResolveRequest(deps)(ctx, makeCallToolRequest("resolve_request", map[string]interface{}{
		"id":     req.ID,
		"answer": "Yes, within 5 miles.",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", toolText(t, result))
	}

	// Teach defaults to true.
	if _, err := store.GetKnowledgeAnswer("do you deliver"); err != nil {
		t.Errorf("answer not taught: %v", err)
	}

	// Resolving again reports the state conflict as a tool error.
	result, err = mcpResolveRequest(deps)(ctx, makeCallToolRequest("resolve_request", map[string]interface{}{
		"id":     req.ID,
		"answer": "again",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("second resolve should be a tool error")
	}
}

func TestMCPTool_ReopenRequest(t *testing.T) {
	deps, store := newTestMCPDeps(t)
	ctx := context.Background()

	req, err := deps.Manager.Create(ctx, "caller-1", "q", "q")
	if err != nil {
		t.Fatal(err)
	}
	if err := deps.Manager.MarkUnresolved(ctx, req.ID, "declined"); err != nil {
		t.Fatal(err)
	}

	result, err := mcpReopenRequest(deps)(ctx, makeCallToolRequest("reopen_request", map[string]interface{}{
		"id": req.ID,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", toolText(t, result))
	}

	got, err := store.GetHelpRequest(req.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != storage.StatusPending {
		t.Errorf("status = %q", got.Status)
	}
}

func TestMCPTool_KnowledgeSearchAndTeach(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	ctx := context.Background()

	result, err := mcpKnowledgeSearch(deps)(ctx, makeCallToolRequest("knowledge_search", map[string]interface{}{
		"question": "what are your hours",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(toolText(t, result), "No taught answer") {
		t.Fatalf("miss result = %q", toolText(t, result))
	}

	if _, err := mcpTeachAnswer(deps)(ctx, makeCallToolRequest("teach_answer", map[string]interface{}{
		"question": "What Are Your Hours",
		"answer":   "8am to 9pm.",
	})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err = mcpKnowledgeSearch(deps)(ctx, makeCallToolRequest("knowledge_search", map[string]interface{}{
		"question": "what are your hours",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if toolText(t, result) != "8am to 9pm." {
		t.Fatalf("hit result = %q", toolText(t, result))
	}
}

func TestMCPResource_Stats(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	ctx := context.Background()

	if _, err := deps.Manager.Create(ctx, "c", "q", "q"); err != nil {
		t.Fatal(err)
	}

	contents, err := mcpResourceStats(deps)(ctx, mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{URI: "frontdesk://stats"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("contents = %d", len(contents))
	}

	var stats statsResponse
	if err := json.Unmarshal([]byte(contents[0].(mcp.TextResourceContents).Text), &stats); err != nil {
		t.Fatalf("decoding stats: %v", err)
	}
	if stats.Requests[storage.StatusPending] != 1 {
		t.Errorf("stats = %+v", stats)
	}
}
