// Package crm talks to the remote CRM backend. Every response uses one
// envelope with a status field; callers branch on that field, not on the
// HTTP status code.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hylla/visning/internal/domain"
)

// statusSuccess is the envelope value for an accepted request.
const statusSuccess = "success"

// defaultRequestTimeout bounds calls whose caller supplies no deadline.
const defaultRequestTimeout = 10 * time.Second

// ErrRemote marks server-reported failures (validation, authorization,
// not-found, conflict). Transport failures are returned unwrapped from the
// HTTP client.
var ErrRemote = errors.New("crm: remote error")

// envelope is the uniform response wrapper.
type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// ChannelConfig is the marketing/WhatsApp channel configuration.
type ChannelConfig struct {
	Channel     string `json:"channel"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Enabled     bool   `json:"enabled"`
}

// Appointment is one scheduled viewing or meeting.
type Appointment struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customer_id"`
	Title      string    `json:"title"`
	At         time.Time `json:"at"`
}

// Client is the HTTP client for the CRM backend. It implements the queue
// service's Syncer port.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *log.Logger
}

// Option configures optional client settings.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.http = httpClient
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New constructs a client against the given base URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("crm: base url is required")
	}
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultRequestTimeout},
		logger:  log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListEmployees fetches the assignable employee list. It also makes the
// client satisfy the app's directory port so the queue can offer pickers.
func (c *Client) ListEmployees(ctx context.Context) ([]domain.Employee, error) {
	var out []domain.Employee
	if err := c.get(ctx, "/employees", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListStages fetches the sales pipeline stages in order.
func (c *Client) ListStages(ctx context.Context) ([]domain.Stage, error) {
	var out []domain.Stage
	if err := c.get(ctx, "/pipeline/stages", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListCustomers fetches the customer collection for the local cache.
func (c *Client) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	var raw []struct {
		ID        string        `json:"id"`
		Name      string        `json:"name"`
		Phone     string        `json:"phone,omitempty"`
		Email     string        `json:"email,omitempty"`
		StageID   string        `json:"stage_id,omitempty"`
		LeadScore int           `json:"lead_score,omitempty"`
		Source    domain.Source `json:"source,omitempty"`
		CreatedAt time.Time     `json:"created_at"`
		UpdatedAt time.Time     `json:"updated_at"`
	}
	if err := c.get(ctx, "/customers", &raw); err != nil {
		return nil, err
	}
	out := make([]domain.Customer, 0, len(raw))
	for _, r := range raw {
		out = append(out, domain.Customer{
			ID:        r.ID,
			Name:      r.Name,
			Phone:     r.Phone,
			Email:     r.Email,
			StageID:   r.StageID,
			LeadScore: r.LeadScore,
			Source:    r.Source,
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		})
	}
	return out, nil
}

// ListAppointments fetches upcoming appointments.
func (c *Client) ListAppointments(ctx context.Context) ([]Appointment, error) {
	var out []Appointment
	if err := c.get(ctx, "/appointments", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetChannelConfig fetches the WhatsApp channel configuration.
func (c *Client) GetChannelConfig(ctx context.Context) (ChannelConfig, error) {
	var out ChannelConfig
	if err := c.get(ctx, "/channels/whatsapp", &out); err != nil {
		return ChannelConfig{}, err
	}
	return out, nil
}

// PushActionUpdate mirrors one action mutation to the backend reminder that
// tracks it.
func (c *Client) PushActionUpdate(ctx context.Context, action domain.Action) error {
	payload := map[string]any{
		"id":           action.ID,
		"customer_id":  action.CustomerID,
		"type":         action.Type,
		"status":       action.Status,
		"priority":     action.Priority,
		"due_at":       action.DueAt,
		"assigned_to":  action.AssignedTo,
		"completed_at": action.CompletedAt,
		"completed_by": action.CompletedBy,
	}
	return c.send(ctx, http.MethodPut, "/reminders/"+action.ID, payload, nil)
}

// MoveCustomerStage reassigns a customer's pipeline stage.
func (c *Client) MoveCustomerStage(ctx context.Context, customerID, stageID string) error {
	payload := map[string]string{"stage_id": stageID}
	return c.send(ctx, http.MethodPut, "/customers/"+customerID+"/stage", payload, nil)
}

// get issues a GET and decodes the envelope data into out.
func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.send(ctx, http.MethodGet, path, nil, out)
}

// send issues one request and unwraps the response envelope.
func (c *Client) send(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("crm: encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("crm: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("crm request failed", "method", method, "path", path, "err", err)
		return fmt.Errorf("crm: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("crm: read %s %s: %w", method, path, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("crm: decode %s %s: %w", method, path, err)
	}
	if env.Status != statusSuccess {
		c.logger.Warn("crm rejected request",
			"method", method, "path", path, "status", env.Status, "message", env.Message)
		if env.Message != "" {
			return fmt.Errorf("%w: %s", ErrRemote, env.Message)
		}
		return fmt.Errorf("%w: status %q", ErrRemote, env.Status)
	}
	c.logger.Debug("crm request ok", "method", method, "path", path, "took", time.Since(started))

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("crm: decode data %s %s: %w", method, path, err)
	}
	return nil
}
