// Package httpapi provides the read-only REST adapter for the action queue,
// mounted under `/api/v1`.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/hylla/visning/internal/app"
	"github.com/hylla/visning/internal/domain"
)

// QueueService is the app surface the serve transports read from.
type QueueService interface {
	ListOpenActions(context.Context) ([]domain.Action, error)
	GetCompletedActions(context.Context) ([]domain.Action, error)
	GetAction(context.Context, string) (domain.Action, error)
	ListPresets(context.Context) ([]domain.SavedFilter, error)
}

// APIError represents one structured API failure response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorEnvelope wraps one structured API error.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// Handler serves the versioned API subrouter.
type Handler struct {
	queue QueueService
	now   func() time.Time
}

// NewHandler constructs the REST adapter.
func NewHandler(queue QueueService) *Handler {
	return &Handler{queue: queue, now: time.Now}
}

// ServeHTTP routes one versioned API request to the matching handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := normalizePath(r.URL.Path)
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, http.MethodGet)
		return
	}
	switch {
	case path == "queue":
		h.handleQueue(w, r)
	case path == "history":
		h.handleHistory(w, r)
	case path == "presets":
		h.handlePresets(w, r)
	case strings.HasPrefix(path, "actions/"):
		h.handleGetAction(w, r, strings.TrimPrefix(path, "actions/"))
	default:
		writeJSONError(w, http.StatusNotFound, APIError{Code: "not_found", Message: "unknown route"})
	}
}

// handleQueue lists open actions, filtered by query parameters and sorted by
// priority.
func (h *Handler) handleQueue(w http.ResponseWriter, r *http.Request) {
	actions, err := h.queue.ListOpenActions(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	criteria, err := criteriaFromQuery(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, APIError{Code: "invalid_request", Message: err.Error()})
		return
	}
	visible := app.SortActions(app.FilterActions(actions, criteria, h.now()))
	writeJSON(w, http.StatusOK, map[string]any{
		"actions": encodeActions(visible),
		"total":   len(visible),
	})
}

// handleHistory lists resolved actions, newest resolution first.
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	actions, err := h.queue.GetCompletedActions(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"actions": encodeActions(actions),
		"total":   len(actions),
	})
}

// handlePresets lists saved filter presets.
func (h *Handler) handlePresets(w http.ResponseWriter, r *http.Request) {
	presets, err := h.queue.ListPresets(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"presets": presets})
}

// handleGetAction returns one action by id.
func (h *Handler) handleGetAction(w http.ResponseWriter, r *http.Request, id string) {
	if strings.TrimSpace(id) == "" {
		writeJSONError(w, http.StatusBadRequest, APIError{Code: "invalid_request", Message: "action id is required"})
		return
	}
	action, err := h.queue.GetAction(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, encodeAction(action))
}

// criteriaFromQuery maps query parameters onto filter criteria.
func criteriaFromQuery(r *http.Request) (domain.FilterCriteria, error) {
	q := r.URL.Query()
	criteria := domain.FilterCriteria{
		Query:     strings.TrimSpace(q.Get("q")),
		DueBucket: domain.DueBucket(strings.TrimSpace(q.Get("bucket"))),
	}
	for _, raw := range splitMulti(q["source"]) {
		criteria.Sources = append(criteria.Sources, domain.Source(raw))
	}
	for _, raw := range splitMulti(q["priority"]) {
		criteria.Priorities = append(criteria.Priorities, domain.Priority(raw))
	}
	for _, raw := range splitMulti(q["type"]) {
		criteria.Types = append(criteria.Types, domain.ActionType(raw))
	}
	for _, raw := range splitMulti(q["assignee"]) {
		criteria.Assignees = append(criteria.Assignees, raw)
	}
	return criteria, nil
}

// splitMulti accepts both repeated params and comma-separated lists.
func splitMulti(values []string) []string {
	out := []string{}
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// actionPayload is the JSON shape for one action.
type actionPayload struct {
	ID             string                `json:"id"`
	CustomerID     string                `json:"customer_id"`
	CustomerName   string                `json:"customer_name,omitempty"`
	Type           domain.ActionType     `json:"type"`
	Title          string                `json:"title"`
	Description    string                `json:"description,omitempty"`
	Priority       domain.Priority       `json:"priority"`
	Status         domain.Status         `json:"status"`
	Source         domain.Source         `json:"source"`
	DueAt          *time.Time            `json:"due_at,omitempty"`
	AssignedTo     string                `json:"assigned_to,omitempty"`
	AssignedToName string                `json:"assigned_to_name,omitempty"`
	Metadata       domain.ActionMetadata `json:"metadata"`
	CreatedAt      time.Time             `json:"created_at"`
	CompletedAt    *time.Time            `json:"completed_at,omitempty"`
	CompletedBy    string                `json:"completed_by,omitempty"`
}

func encodeAction(a domain.Action) actionPayload {
	return actionPayload{
		ID:             a.ID,
		CustomerID:     a.CustomerID,
		CustomerName:   a.CustomerName,
		Type:           a.Type,
		Title:          a.Title,
		Description:    a.Description,
		Priority:       a.Priority,
		Status:         a.Status,
		Source:         a.Source,
		DueAt:          a.DueAt,
		AssignedTo:     a.AssignedTo,
		AssignedToName: a.AssignedToName,
		Metadata:       a.Metadata,
		CreatedAt:      a.CreatedAt,
		CompletedAt:    a.CompletedAt,
		CompletedBy:    a.CompletedBy,
	}
}

func encodeActions(actions []domain.Action) []actionPayload {
	out := make([]actionPayload, 0, len(actions))
	for _, a := range actions {
		out = append(out, encodeAction(a))
	}
	return out
}

// normalizePath trims the mount prefix and surrounding slashes.
func normalizePath(path string) string {
	return strings.Trim(path, "/")
}

func writeServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, app.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, APIError{Code: "not_found", Message: "action not found"})
		return
	}
	writeJSONError(w, http.StatusInternalServerError, APIError{Code: "internal", Message: err.Error()})
}

func writeMethodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeJSONError(w, http.StatusMethodNotAllowed, APIError{Code: "method_not_allowed", Message: "method not allowed"})
}

func writeJSONError(w http.ResponseWriter, status int, apiErr APIError) {
	writeJSON(w, status, ErrorEnvelope{Error: apiErr})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
