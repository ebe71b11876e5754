package mcpapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hylla/visning/internal/adapters/server/httpapi"
	"github.com/hylla/visning/internal/app"
	"github.com/hylla/visning/internal/domain"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

var errQueueRequired = errors.New("queue service is required")

// registerQueueTools registers the read-side queue tools.
func registerQueueTools(srv *mcpserver.MCPServer, queue httpapi.QueueService) {
	srv.AddTool(
		mcp.NewTool(
			"visning.queue_state",
			mcp.WithDescription("Summarize open follow-up actions by source and priority."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			actions, err := queue.ListOpenActions(ctx)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			bySource := map[domain.Source]int{}
			byPriority := map[domain.Priority]int{}
			overdue := 0
			now := time.Now()
			for _, action := range actions {
				bySource[action.Source]++
				byPriority[action.Priority]++
				if action.DueAt != nil && action.DueAt.Before(now) {
					overdue++
				}
			}
			result, err := mcp.NewToolResultJSON(map[string]any{
				"open":        len(actions),
				"overdue":     overdue,
				"by_source":   bySource,
				"by_priority": byPriority,
			})
			if err != nil {
				return nil, fmt.Errorf("encode queue_state result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"visning.list_actions",
			mcp.WithDescription("List open follow-up actions, optionally narrowed by source, priority, or due bucket."),
			mcp.WithString("source", mcp.Description("Acquisition channel filter"),
				mcp.Enum("whatsapp", "inquiry", "manual", "referral", "import")),
			mcp.WithString("priority", mcp.Description("Priority filter"),
				mcp.Enum("urgent", "high", "medium", "low")),
			mcp.WithString("bucket", mcp.Description("Due-date bucket filter"),
				mcp.Enum("all", "overdue", "today", "week", "no_date")),
			mcp.WithString("query", mcp.Description("Free-text search over title, description, customer name")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			actions, err := queue.ListOpenActions(ctx)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			criteria := domain.FilterCriteria{
				Query:     req.GetString("query", ""),
				DueBucket: domain.DueBucket(req.GetString("bucket", "")),
			}
			if source := req.GetString("source", ""); source != "" {
				criteria.Sources = []domain.Source{domain.Source(source)}
			}
			if priority := req.GetString("priority", ""); priority != "" {
				criteria.Priorities = []domain.Priority{domain.Priority(priority)}
			}
			visible := app.SortActions(app.FilterActions(actions, criteria, time.Now()))
			result, err := mcp.NewToolResultJSON(map[string]any{"actions": visible, "total": len(visible)})
			if err != nil {
				return nil, fmt.Errorf("encode list_actions result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"visning.get_action",
			mcp.WithDescription("Fetch one follow-up action by id."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Action id")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id := req.GetString("id", "")
			if id == "" {
				return mcp.NewToolResultError(`invalid_request: required argument "id" not found`), nil
			}
			action, err := queue.GetAction(ctx, id)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			result, err := mcp.NewToolResultJSON(action)
			if err != nil {
				return nil, fmt.Errorf("encode get_action result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"visning.recommend_next",
			mcp.WithDescription("Return the highest-priority open actions an agent should work next."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of actions to return (default 5)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			actions, err := queue.ListOpenActions(ctx)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			limit := req.GetInt("limit", 5)
			if limit <= 0 {
				limit = 5
			}
			ranked := app.SortActions(actions)
			if len(ranked) > limit {
				ranked = ranked[:limit]
			}
			result, err := mcp.NewToolResultJSON(map[string]any{"actions": ranked})
			if err != nil {
				return nil, fmt.Errorf("encode recommend_next result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"visning.list_presets",
			mcp.WithDescription("List saved filter presets."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			presets, err := queue.ListPresets(ctx)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{"presets": presets})
			if err != nil {
				return nil, fmt.Errorf("encode list_presets result: %w", err)
			}
			return result, nil
		},
	)
}
