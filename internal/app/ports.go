package app

import (
	"context"

	"github.com/hylla/visning/internal/domain"
)

// Repository is the persistence port for actions, customers, and saved filters.
type Repository interface {
	CreateAction(context.Context, domain.Action) error
	UpdateAction(context.Context, domain.Action) error
	GetAction(context.Context, string) (domain.Action, error)
	ListActions(context.Context, bool) ([]domain.Action, error)

	UpsertCustomer(context.Context, domain.Customer) error
	GetCustomer(context.Context, string) (domain.Customer, error)
	ListCustomers(context.Context) ([]domain.Customer, error)

	// Saved filters persist as one wholesale array under a single key, so the
	// port reads and writes the full set.
	LoadSavedFilters(context.Context) ([]domain.SavedFilter, error)
	StoreSavedFilters(context.Context, []domain.SavedFilter) error
}

// Syncer pushes confirmed mutations to the remote CRM. Implementations must
// honor context deadlines; the service rolls local state back when a push
// for a single-record mutation fails.
type Syncer interface {
	PushActionUpdate(context.Context, domain.Action) error
	MoveCustomerStage(ctx context.Context, customerID, stageID string) error
}

// Directory lists the assignable employees. Syncers that also expose the CRM
// directory unlock employee pickers on the surfaces; without one, callers
// fall back to assignees already present in the local data.
type Directory interface {
	ListEmployees(context.Context) ([]domain.Employee, error)
}
