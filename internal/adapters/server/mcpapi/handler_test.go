package mcpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/hylla/visning/internal/app"
	"github.com/hylla/visning/internal/domain"
	"github.com/mark3labs/mcp-go/mcp"
)

// stubQueueService provides deterministic queue responses for MCP tool tests.
type stubQueueService struct {
	open      []domain.Action
	completed []domain.Action
	presets   []domain.SavedFilter
	err       error
	lastGetID string
}

// ListOpenActions returns deterministic fixture actions.
func (s *stubQueueService) ListOpenActions(_ context.Context) ([]domain.Action, error) {
	if s.err != nil {
		return nil, s.err
	}
	return append([]domain.Action(nil), s.open...), nil
}

// GetCompletedActions returns deterministic fixture history.
func (s *stubQueueService) GetCompletedActions(_ context.Context) ([]domain.Action, error) {
	if s.err != nil {
		return nil, s.err
	}
	return append([]domain.Action(nil), s.completed...), nil
}

// GetAction records the requested id and returns one fixture action.
func (s *stubQueueService) GetAction(_ context.Context, id string) (domain.Action, error) {
	s.lastGetID = id
	if s.err != nil {
		return domain.Action{}, s.err
	}
	for _, a := range s.open {
		if a.ID == id {
			return a, nil
		}
	}
	return domain.Action{}, app.ErrNotFound
}

// ListPresets returns deterministic fixture presets.
func (s *stubQueueService) ListPresets(_ context.Context) ([]domain.SavedFilter, error) {
	if s.err != nil {
		return nil, s.err
	}
	return append([]domain.SavedFilter(nil), s.presets...), nil
}

// fixtureAction builds one valid open action for MCP tool tests.
func fixtureAction(t *testing.T, id string, priority domain.Priority, source domain.Source, dueAt *time.Time) domain.Action {
	t.Helper()
	now := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	action, err := domain.NewAction(domain.ActionInput{
		ID:           id,
		CustomerID:   "cust-" + id,
		CustomerName: "Hanna Berg",
		Type:         domain.TypeFollowUp,
		Title:        "Follow up " + id,
		Priority:     priority,
		Source:       source,
		DueAt:        dueAt,
	}, now)
	if err != nil {
		t.Fatalf("NewAction() error = %v", err)
	}
	return action
}

// jsonRPCResponse models minimal JSON-RPC response fields used in MCP adapter tests.
type jsonRPCResponse struct {
	ID     float64        `json:"id"`
	Result map[string]any `json:"result"`
}

// callToolRequest constructs one deterministic tools/call JSON-RPC request payload.
func callToolRequest(id int, toolName string, arguments map[string]any) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  "tools/call",
		"params": map[string]any{
			"name":      toolName,
			"arguments": arguments,
		},
	}
}

// toolResultText decodes the first text entry from one tool-call result payload.
func toolResultText(t *testing.T, result map[string]any) string {
	t.Helper()

	contentRaw, ok := result["content"].([]any)
	if !ok || len(contentRaw) == 0 {
		t.Fatalf("content missing in tool result: %#v", result)
	}
	first, ok := contentRaw[0].(map[string]any)
	if !ok {
		t.Fatalf("first content entry has unexpected type: %#v", contentRaw[0])
	}
	text, ok := first["text"].(string)
	if !ok {
		t.Fatalf("content text missing in tool result: %#v", first)
	}
	return text
}

// toolResultStructured decodes structuredContent as one map for stable assertions.
func toolResultStructured(t *testing.T, result map[string]any) map[string]any {
	t.Helper()
	structured, ok := result["structuredContent"].(map[string]any)
	if !ok {
		t.Fatalf("structuredContent missing in tool result: %#v", result)
	}
	return structured
}

// postJSONRPC sends one JSON-RPC payload and decodes the response body.
func postJSONRPC(t *testing.T, client *http.Client, url string, payload any) (*http.Response, jsonRPCResponse) {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	var decoded jsonRPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if err := resp.Body.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return resp, decoded
}

// initializeRequest builds a deterministic MCP initialize request payload.
func initializeRequest() map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "initialize",
		"params": map[string]any{
			"protocolVersion": mcp.LATEST_PROTOCOL_VERSION,
			"clientInfo": map[string]any{
				"name":    "visning-test",
				"version": "1.0.0",
			},
		},
	}
}

// TestHandlerUsesStatelessTransport verifies MCP transport does not issue session ids.
func TestHandlerUsesStatelessTransport(t *testing.T) {
	handler, err := NewHandler(Config{}, &stubQueueService{})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}

	server := httptest.NewServer(handler)
	defer server.Close()

	resp, decoded := postJSONRPC(t, server.Client(), server.URL, initializeRequest())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if decoded.ID != 1 {
		t.Fatalf("id = %v, want 1", decoded.ID)
	}
	if got := resp.Header.Get("Mcp-Session-Id"); got != "" {
		t.Fatalf("Mcp-Session-Id header = %q, want empty (stateless transport)", got)
	}
}

// TestHandlerRegistersQueueTools verifies MCP tool discovery includes the queue read tools.
func TestHandlerRegistersQueueTools(t *testing.T) {
	handler, err := NewHandler(Config{}, &stubQueueService{})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}

	server := httptest.NewServer(handler)
	defer server.Close()
	_, _ = postJSONRPC(t, server.Client(), server.URL, initializeRequest())
	_, toolsResp := postJSONRPC(t, server.Client(), server.URL, map[string]any{
		"jsonrpc": "2.0",
		"id":      2,
		"method":  "tools/list",
	})

	toolsRaw, ok := toolsResp.Result["tools"].([]any)
	if !ok {
		t.Fatalf("tools list payload missing tools: %#v", toolsResp.Result)
	}
	toolNames := make([]string, 0, len(toolsRaw))
	for _, toolRaw := range toolsRaw {
		toolMap, ok := toolRaw.(map[string]any)
		if !ok {
			continue
		}
		name, _ := toolMap["name"].(string)
		toolNames = append(toolNames, name)
	}
	for _, required := range []string{
		"visning.queue_state",
		"visning.list_actions",
		"visning.get_action",
		"visning.recommend_next",
		"visning.list_presets",
	} {
		if !slices.Contains(toolNames, required) {
			t.Fatalf("tool list missing %q: %#v", required, toolNames)
		}
	}
}

// TestHandlerQueueStateToolCall verifies queue_state returns structured counters.
func TestHandlerQueueStateToolCall(t *testing.T) {
	overdue := time.Now().Add(-2 * time.Hour)
	queue := &stubQueueService{open: []domain.Action{
		fixtureAction(t, "a-1", domain.PriorityUrgent, domain.SourceWhatsApp, &overdue),
		fixtureAction(t, "a-2", domain.PriorityLow, domain.SourceManual, nil),
	}}
	handler, err := NewHandler(Config{}, queue)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}

	server := httptest.NewServer(handler)
	defer server.Close()
	_, _ = postJSONRPC(t, server.Client(), server.URL, initializeRequest())

	_, callResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(2, "visning.queue_state", map[string]any{}))
	structured := toolResultStructured(t, callResp.Result)
	if got, _ := structured["open"].(float64); got != 2 {
		t.Fatalf("open = %v, want 2", structured["open"])
	}
	if got, _ := structured["overdue"].(float64); got != 1 {
		t.Fatalf("overdue = %v, want 1", structured["overdue"])
	}
	bySource, ok := structured["by_source"].(map[string]any)
	if !ok {
		t.Fatalf("by_source missing: %#v", structured)
	}
	if got, _ := bySource["whatsapp"].(float64); got != 1 {
		t.Fatalf("by_source[whatsapp] = %v, want 1", bySource["whatsapp"])
	}
}

// TestHandlerListActionsToolCallFilters verifies list_actions narrows by source.
func TestHandlerListActionsToolCallFilters(t *testing.T) {
	queue := &stubQueueService{open: []domain.Action{
		fixtureAction(t, "a-1", domain.PriorityHigh, domain.SourceWhatsApp, nil),
		fixtureAction(t, "a-2", domain.PriorityHigh, domain.SourceInquiry, nil),
	}}
	handler, err := NewHandler(Config{}, queue)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}

	server := httptest.NewServer(handler)
	defer server.Close()
	_, _ = postJSONRPC(t, server.Client(), server.URL, initializeRequest())

	_, callResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(2, "visning.list_actions", map[string]any{
		"source": "whatsapp",
	}))
	structured := toolResultStructured(t, callResp.Result)
	if got, _ := structured["total"].(float64); got != 1 {
		t.Fatalf("total = %v, want 1", structured["total"])
	}
	actionsRaw, ok := structured["actions"].([]any)
	if !ok || len(actionsRaw) != 1 {
		t.Fatalf("actions = %#v, want one row", structured["actions"])
	}
}

// TestHandlerGetActionToolCallErrorPaths verifies required-arg and not-found mapping.
func TestHandlerGetActionToolCallErrorPaths(t *testing.T) {
	queue := &stubQueueService{open: []domain.Action{
		fixtureAction(t, "a-1", domain.PriorityMedium, domain.SourceManual, nil),
	}}
	handler, err := NewHandler(Config{}, queue)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}

	server := httptest.NewServer(handler)
	defer server.Close()
	_, _ = postJSONRPC(t, server.Client(), server.URL, initializeRequest())

	_, missingArgResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(2, "visning.get_action", map[string]any{}))
	if isError, _ := missingArgResp.Result["isError"].(bool); !isError {
		t.Fatalf("isError = %v, want true", missingArgResp.Result["isError"])
	}
	if got := toolResultText(t, missingArgResp.Result); !strings.Contains(got, `required argument "id" not found`) {
		t.Fatalf("error text = %q, want required id message", got)
	}

	_, okResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(3, "visning.get_action", map[string]any{
		"id": "a-1",
	}))
	structured := toolResultStructured(t, okResp.Result)
	if got, _ := structured["id"].(string); got != "a-1" {
		t.Fatalf("id = %q, want a-1", got)
	}
	if queue.lastGetID != "a-1" {
		t.Fatalf("lastGetID = %q, want a-1", queue.lastGetID)
	}
}

// TestHandlerRecommendNextToolCall verifies ranked output honors the limit argument.
func TestHandlerRecommendNextToolCall(t *testing.T) {
	queue := &stubQueueService{open: []domain.Action{
		fixtureAction(t, "a-low", domain.PriorityLow, domain.SourceManual, nil),
		fixtureAction(t, "a-urgent", domain.PriorityUrgent, domain.SourceWhatsApp, nil),
		fixtureAction(t, "a-high", domain.PriorityHigh, domain.SourceInquiry, nil),
	}}
	handler, err := NewHandler(Config{}, queue)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}

	server := httptest.NewServer(handler)
	defer server.Close()
	_, _ = postJSONRPC(t, server.Client(), server.URL, initializeRequest())

	_, callResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(2, "visning.recommend_next", map[string]any{
		"limit": 1,
	}))
	structured := toolResultStructured(t, callResp.Result)
	actionsRaw, ok := structured["actions"].([]any)
	if !ok || len(actionsRaw) != 1 {
		t.Fatalf("actions = %#v, want one row", structured["actions"])
	}
	first, ok := actionsRaw[0].(map[string]any)
	if !ok {
		t.Fatalf("first action has unexpected type: %#v", actionsRaw[0])
	}
	if got, _ := first["id"].(string); got != "a-urgent" {
		t.Fatalf("first recommended id = %q, want a-urgent", got)
	}
}

// TestNewHandlerRequiresQueueService verifies dependency enforcement.
func TestNewHandlerRequiresQueueService(t *testing.T) {
	handler, err := NewHandler(Config{}, nil)
	if err == nil {
		t.Fatalf("NewHandler() error = nil, want non-nil")
	}
	if handler != nil {
		t.Fatalf("handler = %#v, want nil", handler)
	}
}

// TestNormalizeConfig verifies deterministic config defaults and path normalization.
func TestNormalizeConfig(t *testing.T) {
	cases := []struct {
		name string
		in   Config
		want Config
	}{
		{
			name: "defaults",
			in:   Config{},
			want: Config{
				ServerName:    "visning",
				ServerVersion: "dev",
				EndpointPath:  "/mcp",
			},
		},
		{
			name: "trimmed values and slash prefix",
			in: Config{
				ServerName:    " visning-server ",
				ServerVersion: " v1.2.3 ",
				EndpointPath:  "custom/path",
			},
			want: Config{
				ServerName:    "visning-server",
				ServerVersion: "v1.2.3",
				EndpointPath:  "/custom/path",
			},
		},
		{
			name: "endpoint trim of repeated slashes",
			in: Config{
				ServerName:    "visning",
				ServerVersion: "dev",
				EndpointPath:  "///mcp///",
			},
			want: Config{
				ServerName:    "visning",
				ServerVersion: "dev",
				EndpointPath:  "/mcp",
			},
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeConfig(tt.in)
			if got != tt.want {
				t.Fatalf("normalizeConfig() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

// TestHandlerServeHTTPUnavailable verifies nil handler paths fail closed with 503.
func TestHandlerServeHTTPUnavailable(t *testing.T) {
	cases := []struct {
		name    string
		handler *Handler
	}{
		{
			name:    "nil receiver",
			handler: nil,
		},
		{
			name:    "missing inner http handler",
			handler: &Handler{},
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewBufferString(`{}`))
			rec := httptest.NewRecorder()

			tt.handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusServiceUnavailable {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
			}
			if !strings.Contains(rec.Body.String(), "mcp handler unavailable") {
				t.Fatalf("body = %q, want mcp handler unavailable", rec.Body.String())
			}
		})
	}
}
