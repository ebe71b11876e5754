// Package sqlite persists the action queue, cached customers, and saved
// filter presets in one local database file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hylla/visning/internal/app"
	"github.com/hylla/visning/internal/domain"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// savedFiltersKey is the single namespaced key the preset array lives under,
// mirroring the one-key layout of the original client-side storage.
const savedFiltersKey = "visning.saved_filters"

// Repository implements the app persistence port over sqlite.
type Repository struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies migrations.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// OpenInMemory opens a throwaway database for tests.
func OpenInMemory() (*Repository, error) {
	db, err := sql.Open(driverName, "file::memory:?cache=shared")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the underlying database.
func (r *Repository) Close() error {
	return r.db.Close()
}

// migrate applies the schema.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS actions (
			id TEXT PRIMARY KEY,
			customer_id TEXT NOT NULL,
			customer_name TEXT NOT NULL DEFAULT '',
			type TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			priority TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			source TEXT NOT NULL,
			due_at TEXT,
			assigned_to TEXT NOT NULL DEFAULT '',
			assigned_to_name TEXT NOT NULL DEFAULT '',
			metadata_json TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			completed_at TEXT,
			completed_by TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE INDEX IF NOT EXISTS idx_actions_status ON actions(status);`,
		`CREATE INDEX IF NOT EXISTS idx_actions_customer ON actions(customer_id);`,
		`CREATE TABLE IF NOT EXISTS customers (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			phone TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			stage_id TEXT NOT NULL DEFAULT '',
			lead_score INTEGER NOT NULL DEFAULT 0,
			source TEXT NOT NULL DEFAULT 'manual',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS kv_store (
			key TEXT PRIMARY KEY,
			value_json TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// CreateAction inserts one action row.
func (r *Repository) CreateAction(ctx context.Context, a domain.Action) error {
	metadata, err := json.Marshal(a.Metadata)
	if err != nil {
		return fmt.Errorf("marshal action metadata: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO actions
		(id, customer_id, customer_name, type, title, description, priority, status, source,
		 due_at, assigned_to, assigned_to_name, metadata_json, created_at, updated_at, completed_at, completed_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.CustomerID, a.CustomerName, string(a.Type), a.Title, a.Description,
		string(a.Priority), string(a.Status), string(a.Source),
		encodeTimePtr(a.DueAt), a.AssignedTo, a.AssignedToName, string(metadata),
		encodeTime(a.CreatedAt), encodeTime(a.UpdatedAt), encodeTimePtr(a.CompletedAt), a.CompletedBy)
	if err != nil {
		return fmt.Errorf("insert action: %w", err)
	}
	return nil
}

// UpdateAction rewrites one action row in full; undo restores depend on the
// whole snapshot being written back.
func (r *Repository) UpdateAction(ctx context.Context, a domain.Action) error {
	metadata, err := json.Marshal(a.Metadata)
	if err != nil {
		return fmt.Errorf("marshal action metadata: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `UPDATE actions SET
		customer_id = ?, customer_name = ?, type = ?, title = ?, description = ?,
		priority = ?, status = ?, source = ?, due_at = ?, assigned_to = ?, assigned_to_name = ?,
		metadata_json = ?, created_at = ?, updated_at = ?, completed_at = ?, completed_by = ?
		WHERE id = ?`,
		a.CustomerID, a.CustomerName, string(a.Type), a.Title, a.Description,
		string(a.Priority), string(a.Status), string(a.Source),
		encodeTimePtr(a.DueAt), a.AssignedTo, a.AssignedToName, string(metadata),
		encodeTime(a.CreatedAt), encodeTime(a.UpdatedAt), encodeTimePtr(a.CompletedAt), a.CompletedBy,
		a.ID)
	if err != nil {
		return fmt.Errorf("update action: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update action rows: %w", err)
	}
	if affected == 0 {
		return app.ErrNotFound
	}
	return nil
}

// GetAction loads one action by id.
func (r *Repository) GetAction(ctx context.Context, id string) (domain.Action, error) {
	row := r.db.QueryRowContext(ctx, `SELECT
		id, customer_id, customer_name, type, title, description, priority, status, source,
		due_at, assigned_to, assigned_to_name, metadata_json, created_at, updated_at, completed_at, completed_by
		FROM actions WHERE id = ?`, id)
	action, err := scanAction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Action{}, app.ErrNotFound
	}
	return action, err
}

// ListActions loads the queue; resolved rows are skipped unless requested.
func (r *Repository) ListActions(ctx context.Context, includeResolved bool) ([]domain.Action, error) {
	query := `SELECT
		id, customer_id, customer_name, type, title, description, priority, status, source,
		due_at, assigned_to, assigned_to_name, metadata_json, created_at, updated_at, completed_at, completed_by
		FROM actions`
	if !includeResolved {
		query += ` WHERE status NOT IN ('completed', 'dismissed')`
	}
	query += ` ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	defer rows.Close()

	out := []domain.Action{}
	for rows.Next() {
		action, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, action)
	}
	return out, rows.Err()
}

// UpsertCustomer writes one customer row.
func (r *Repository) UpsertCustomer(ctx context.Context, c domain.Customer) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO customers
		(id, name, phone, email, stage_id, lead_score, source, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, phone = excluded.phone, email = excluded.email,
			stage_id = excluded.stage_id, lead_score = excluded.lead_score,
			source = excluded.source, updated_at = excluded.updated_at`,
		c.ID, c.Name, c.Phone, c.Email, c.StageID, c.LeadScore, string(c.Source),
		encodeTime(c.CreatedAt), encodeTime(c.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert customer: %w", err)
	}
	return nil
}

// GetCustomer loads one customer by id.
func (r *Repository) GetCustomer(ctx context.Context, id string) (domain.Customer, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, name, phone, email, stage_id, lead_score, source, created_at, updated_at
		FROM customers WHERE id = ?`, id)
	customer, err := scanCustomer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Customer{}, app.ErrNotFound
	}
	return customer, err
}

// ListCustomers loads every cached customer.
func (r *Repository) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, phone, email, stage_id, lead_score, source, created_at, updated_at
		FROM customers ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	out := []domain.Customer{}
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, customer)
	}
	return out, rows.Err()
}

// LoadSavedFilters reads the preset array from its single key.
func (r *Repository) LoadSavedFilters(ctx context.Context) ([]domain.SavedFilter, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, `SELECT value_json FROM kv_store WHERE key = ?`, savedFiltersKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return []domain.SavedFilter{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load saved filters: %w", err)
	}
	out := []domain.SavedFilter{}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode saved filters: %w", err)
	}
	return out, nil
}

// StoreSavedFilters replaces the preset array wholesale.
func (r *Repository) StoreSavedFilters(ctx context.Context, presets []domain.SavedFilter) error {
	if presets == nil {
		presets = []domain.SavedFilter{}
	}
	raw, err := json.Marshal(presets)
	if err != nil {
		return fmt.Errorf("marshal saved filters: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO kv_store (key, value_json) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value_json = excluded.value_json`,
		savedFiltersKey, string(raw))
	if err != nil {
		return fmt.Errorf("store saved filters: %w", err)
	}
	return nil
}

// scanner matches sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanAction decodes one action row.
func scanAction(row scanner) (domain.Action, error) {
	var (
		a            domain.Action
		actionType   string
		priority     string
		status       string
		source       string
		dueAt        sql.NullString
		metadataJSON string
		createdAt    string
		updatedAt    string
		completedAt  sql.NullString
	)
	err := row.Scan(&a.ID, &a.CustomerID, &a.CustomerName, &actionType, &a.Title, &a.Description,
		&priority, &status, &source, &dueAt, &a.AssignedTo, &a.AssignedToName,
		&metadataJSON, &createdAt, &updatedAt, &completedAt, &a.CompletedBy)
	if err != nil {
		return domain.Action{}, err
	}
	a.Type = domain.ActionType(actionType)
	a.Priority = domain.Priority(priority)
	a.Status = domain.Status(status)
	a.Source = domain.Source(source)
	if a.DueAt, err = decodeTimePtr(dueAt); err != nil {
		return domain.Action{}, fmt.Errorf("decode due_at: %w", err)
	}
	if a.CompletedAt, err = decodeTimePtr(completedAt); err != nil {
		return domain.Action{}, fmt.Errorf("decode completed_at: %w", err)
	}
	if a.CreatedAt, err = decodeTime(createdAt); err != nil {
		return domain.Action{}, fmt.Errorf("decode created_at: %w", err)
	}
	if a.UpdatedAt, err = decodeTime(updatedAt); err != nil {
		return domain.Action{}, fmt.Errorf("decode updated_at: %w", err)
	}
	if err := json.Unmarshal([]byte(metadataJSON), &a.Metadata); err != nil {
		return domain.Action{}, fmt.Errorf("decode action metadata: %w", err)
	}
	return a, nil
}

// scanCustomer decodes one customer row.
func scanCustomer(row scanner) (domain.Customer, error) {
	var (
		c         domain.Customer
		source    string
		createdAt string
		updatedAt string
	)
	err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.StageID, &c.LeadScore, &source, &createdAt, &updatedAt)
	if err != nil {
		return domain.Customer{}, err
	}
	c.Source = domain.Source(source)
	if c.CreatedAt, err = decodeTime(createdAt); err != nil {
		return domain.Customer{}, fmt.Errorf("decode created_at: %w", err)
	}
	if c.UpdatedAt, err = decodeTime(updatedAt); err != nil {
		return domain.Customer{}, fmt.Errorf("decode updated_at: %w", err)
	}
	return c, nil
}

func encodeTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func encodeTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return encodeTime(*t)
}

func decodeTime(raw string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, raw)
}

func decodeTimePtr(raw sql.NullString) (*time.Time, error) {
	if !raw.Valid || strings.TrimSpace(raw.String) == "" {
		return nil, nil
	}
	ts, err := decodeTime(raw.String)
	if err != nil {
		return nil, err
	}
	return &ts, nil
}
