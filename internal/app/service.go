package app

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/hylla/visning/internal/domain"
)

// IDGenerator returns unique identifiers for new entities.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// ServiceConfig holds configuration for the queue service.
type ServiceConfig struct {
	UndoCapacity int
	// SyncTimeout bounds each remote push for single-record mutations.
	SyncTimeout time.Duration
	// Actor stamps CompletedBy on complete/dismiss.
	Actor string
}

// defaultSyncTimeout matches the short stage-change deadline the remote API
// callers use.
const defaultSyncTimeout = 4 * time.Second

// Service is the single mutation surface over the action store. All writes go
// through it so every mutation can record an undo entry and push to the
// remote CRM.
type Service struct {
	repo        Repository
	syncer      Syncer
	idGen       IDGenerator
	clock       Clock
	undo        *undoStack
	syncTimeout time.Duration
	actor       string
}

// NewService constructs the queue service. A nil syncer disables remote
// pushes; mutations then stay local.
func NewService(repo Repository, syncer Syncer, idGen IDGenerator, clock Clock, cfg ServiceConfig) *Service {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	if cfg.SyncTimeout <= 0 {
		cfg.SyncTimeout = defaultSyncTimeout
	}
	return &Service{
		repo:        repo,
		syncer:      syncer,
		idGen:       idGen,
		clock:       clock,
		undo:        newUndoStack(cfg.UndoCapacity),
		syncTimeout: cfg.SyncTimeout,
		actor:       cfg.Actor,
	}
}

// CreateActionInput holds input values for action creation.
type CreateActionInput struct {
	CustomerID     string
	CustomerName   string
	Type           domain.ActionType
	Title          string
	Description    string
	Priority       domain.Priority
	Source         domain.Source
	DueAt          *time.Time
	AssignedTo     string
	AssignedToName string
	Metadata       domain.ActionMetadata
}

// CreateAction ingests a new pending action into the queue.
func (s *Service) CreateAction(ctx context.Context, in CreateActionInput) (domain.Action, error) {
	action, err := domain.NewAction(domain.ActionInput{
		ID:             s.idGen(),
		CustomerID:     in.CustomerID,
		CustomerName:   in.CustomerName,
		Type:           in.Type,
		Title:          in.Title,
		Description:    in.Description,
		Priority:       in.Priority,
		Source:         in.Source,
		DueAt:          in.DueAt,
		AssignedTo:     in.AssignedTo,
		AssignedToName: in.AssignedToName,
		Metadata:       in.Metadata,
	}, s.clock())
	if err != nil {
		return domain.Action{}, err
	}
	if err := s.repo.CreateAction(ctx, action); err != nil {
		return domain.Action{}, err
	}
	return action, nil
}

// CompleteAction resolves one open action. Undoable; pushed to the remote
// CRM with rollback on confirmed failure.
func (s *Service) CompleteAction(ctx context.Context, id string) (domain.Action, error) {
	return s.mutateOne(ctx, id, "complete", func(a *domain.Action) error {
		return a.Complete(s.actor, s.clock())
	})
}

// DismissAction resolves one open action as not-actionable.
func (s *Service) DismissAction(ctx context.Context, id string) (domain.Action, error) {
	return s.mutateOne(ctx, id, "dismiss", func(a *domain.Action) error {
		return a.Dismiss(s.actor, s.clock())
	})
}

// SnoozeAction defers one open action until the given instant.
func (s *Service) SnoozeAction(ctx context.Context, id string, until time.Time) (domain.Action, error) {
	return s.mutateOne(ctx, id, "snooze", func(a *domain.Action) error {
		return a.Snooze(until, s.clock())
	})
}

// AssignAction sets the responsible employee on one action.
func (s *Service) AssignAction(ctx context.Context, id, employeeID, employeeName string) (domain.Action, error) {
	return s.mutateOne(ctx, id, "assign", func(a *domain.Action) error {
		a.Assign(employeeID, employeeName, s.clock())
		return nil
	})
}

// ReprioritizeAction changes one action's priority.
func (s *Service) ReprioritizeAction(ctx context.Context, id string, priority domain.Priority) (domain.Action, error) {
	return s.mutateOne(ctx, id, "reprioritize", func(a *domain.Action) error {
		return a.Reprioritize(priority, s.clock())
	})
}

// AddActionNote appends a note without recording undo history; notes are
// additive and the original UI offers no note removal.
func (s *Service) AddActionNote(ctx context.Context, id, text string) (domain.Action, error) {
	action, err := s.repo.GetAction(ctx, id)
	if err != nil {
		return domain.Action{}, err
	}
	if err := action.AddNote(text, s.clock()); err != nil {
		return domain.Action{}, err
	}
	if err := s.repo.UpdateAction(ctx, action); err != nil {
		return domain.Action{}, err
	}
	return action, nil
}

// RestoreAction returns a resolved action to pending from the history view.
// Deliberately NOT undoable: it is itself a manual reversal.
func (s *Service) RestoreAction(ctx context.Context, id string) (domain.Action, error) {
	action, err := s.repo.GetAction(ctx, id)
	if err != nil {
		return domain.Action{}, err
	}
	prior := action.Clone()
	if err := action.Restore(s.clock()); err != nil {
		return domain.Action{}, err
	}
	if err := s.repo.UpdateAction(ctx, action); err != nil {
		return domain.Action{}, err
	}
	if err := s.pushRemote(ctx, action); err != nil {
		if rbErr := s.repo.UpdateAction(ctx, prior); rbErr != nil {
			return domain.Action{}, fmt.Errorf("rollback restore: %w", rbErr)
		}
		return domain.Action{}, err
	}
	return action, nil
}

// BulkResult reports which ids a bulk operation applied and which it skipped.
type BulkResult struct {
	Succeeded []string
	Skipped   []string
}

// CompleteActions completes every eligible id and records one undo entry for
// the whole batch. Unknown or non-open ids are reported as skipped; an empty
// id list is ErrEmptySelection. Bulk mutations stay local; the backend
// reconciles on the next full fetch.
func (s *Service) CompleteActions(ctx context.Context, ids []string) (BulkResult, error) {
	return s.mutateMany(ctx, ids, "complete %d actions", func(a *domain.Action) error {
		return a.Complete(s.actor, s.clock())
	})
}

// DismissActions dismisses every eligible id as one undoable batch.
func (s *Service) DismissActions(ctx context.Context, ids []string) (BulkResult, error) {
	return s.mutateMany(ctx, ids, "dismiss %d actions", func(a *domain.Action) error {
		return a.Dismiss(s.actor, s.clock())
	})
}

// SnoozeActions snoozes every eligible id until the same instant as one
// undoable batch.
func (s *Service) SnoozeActions(ctx context.Context, ids []string, until time.Time) (BulkResult, error) {
	return s.mutateMany(ctx, ids, "snooze %d actions", func(a *domain.Action) error {
		return a.Snooze(until, s.clock())
	})
}

// AssignActions assigns every matched id as one undoable batch. Status is
// untouched, so resolved actions are still eligible.
func (s *Service) AssignActions(ctx context.Context, ids []string, employeeID, employeeName string) (BulkResult, error) {
	return s.mutateMany(ctx, ids, "assign %d actions", func(a *domain.Action) error {
		a.Assign(employeeID, employeeName, s.clock())
		return nil
	})
}

// ReprioritizeActions sets priority on every matched id as one undoable batch.
func (s *Service) ReprioritizeActions(ctx context.Context, ids []string, priority domain.Priority) (BulkResult, error) {
	return s.mutateMany(ctx, ids, "reprioritize %d actions", func(a *domain.Action) error {
		return a.Reprioritize(priority, s.clock())
	})
}

// UndoLastAction pops the most recent undo entry and restores every captured
// snapshot, last-write-wins against intervening edits. No-op when the stack
// is empty.
func (s *Service) UndoLastAction(ctx context.Context) (int, error) {
	entry, ok := s.undo.pop()
	if !ok {
		return 0, nil
	}
	restored := 0
	for _, snapshot := range entry.Snapshots {
		if err := s.repo.UpdateAction(ctx, snapshot); err != nil {
			return restored, fmt.Errorf("undo %q: %w", entry.Label, err)
		}
		restored++
	}
	return restored, nil
}

// UndoDepth reports how many mutations can currently be undone.
func (s *Service) UndoDepth() int {
	return s.undo.depth()
}

// ListOpenActions returns actions still requiring attention.
func (s *Service) ListOpenActions(ctx context.Context) ([]domain.Action, error) {
	actions, err := s.repo.ListActions(ctx, false)
	if err != nil {
		return nil, err
	}
	return SortActions(actions), nil
}

// GetCompletedActions returns resolved actions, newest resolution first.
func (s *Service) GetCompletedActions(ctx context.Context) ([]domain.Action, error) {
	actions, err := s.repo.ListActions(ctx, true)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Action, 0, len(actions))
	for _, action := range actions {
		if action.IsResolved() {
			out = append(out, action)
		}
	}
	slices.SortFunc(out, func(a, b domain.Action) int {
		return compareDueAt(b.CompletedAt, a.CompletedAt)
	})
	return out, nil
}

// GetAction returns one action by id.
func (s *Service) GetAction(ctx context.Context, id string) (domain.Action, error) {
	return s.repo.GetAction(ctx, id)
}

// GetCustomerByID is the read-only lookup into the customer collection.
func (s *Service) GetCustomerByID(ctx context.Context, id string) (domain.Customer, error) {
	return s.repo.GetCustomer(ctx, id)
}

// ListCustomers lists the locally cached customer collection.
func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx)
}

// ListEmployees returns the assignable employees when the configured syncer
// also exposes the CRM directory. ErrNoDirectory otherwise.
func (s *Service) ListEmployees(ctx context.Context) ([]domain.Employee, error) {
	dir, ok := s.syncer.(Directory)
	if !ok {
		return nil, ErrNoDirectory
	}
	return dir.ListEmployees(ctx)
}

// MoveCustomerStage optimistically moves a customer to another pipeline stage
// and pushes the change with a short deadline, reverting on failure.
func (s *Service) MoveCustomerStage(ctx context.Context, customerID, stageID string) (domain.Customer, error) {
	customer, err := s.repo.GetCustomer(ctx, customerID)
	if err != nil {
		return domain.Customer{}, err
	}
	prior := customer
	customer.StageID = stageID
	customer.UpdatedAt = s.clock().UTC()
	if err := s.repo.UpsertCustomer(ctx, customer); err != nil {
		return domain.Customer{}, err
	}
	if s.syncer != nil {
		pushCtx, cancel := context.WithTimeout(ctx, s.syncTimeout)
		defer cancel()
		if err := s.syncer.MoveCustomerStage(pushCtx, customerID, stageID); err != nil {
			if rbErr := s.repo.UpsertCustomer(ctx, prior); rbErr != nil {
				return domain.Customer{}, fmt.Errorf("rollback stage move: %w", rbErr)
			}
			return domain.Customer{}, fmt.Errorf("move customer stage: %w", err)
		}
	}
	return customer, nil
}

// mutateOne applies a single-record mutation with undo capture and an
// optimistic remote push.
func (s *Service) mutateOne(ctx context.Context, id, label string, mutate func(*domain.Action) error) (domain.Action, error) {
	action, err := s.repo.GetAction(ctx, id)
	if err != nil {
		return domain.Action{}, err
	}
	prior := action.Clone()
	if err := mutate(&action); err != nil {
		return domain.Action{}, err
	}
	if err := s.repo.UpdateAction(ctx, action); err != nil {
		return domain.Action{}, err
	}
	if err := s.pushRemote(ctx, action); err != nil {
		// Confirmed remote failure reverts the optimistic local write.
		if rbErr := s.repo.UpdateAction(ctx, prior); rbErr != nil {
			return domain.Action{}, fmt.Errorf("rollback %s: %w", label, rbErr)
		}
		return domain.Action{}, err
	}
	s.undo.push(UndoEntry{
		Label:     fmt.Sprintf("%s %s", label, id),
		At:        s.clock().UTC(),
		Snapshots: []domain.Action{prior},
	})
	return action, nil
}

// mutateMany applies one mutation to every id, skipping missing or ineligible
// records, and pushes a single undo entry covering the batch.
func (s *Service) mutateMany(ctx context.Context, ids []string, labelFormat string, mutate func(*domain.Action) error) (BulkResult, error) {
	if len(ids) == 0 {
		return BulkResult{}, ErrEmptySelection
	}
	result := BulkResult{}
	snapshots := make([]domain.Action, 0, len(ids))
	seen := map[string]struct{}{}
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		action, err := s.repo.GetAction(ctx, id)
		if err != nil {
			result.Skipped = append(result.Skipped, id)
			continue
		}
		prior := action.Clone()
		if err := mutate(&action); err != nil {
			result.Skipped = append(result.Skipped, id)
			continue
		}
		if err := s.repo.UpdateAction(ctx, action); err != nil {
			return result, err
		}
		snapshots = append(snapshots, prior)
		result.Succeeded = append(result.Succeeded, id)
	}
	if len(snapshots) > 0 {
		s.undo.push(UndoEntry{
			Label:     fmt.Sprintf(labelFormat, len(snapshots)),
			At:        s.clock().UTC(),
			Snapshots: snapshots,
		})
	}
	return result, nil
}

// pushRemote forwards one action update to the syncer under the sync deadline.
func (s *Service) pushRemote(ctx context.Context, action domain.Action) error {
	if s.syncer == nil {
		return nil
	}
	pushCtx, cancel := context.WithTimeout(ctx, s.syncTimeout)
	defer cancel()
	if err := s.syncer.PushActionUpdate(pushCtx, action); err != nil {
		return fmt.Errorf("push action update: %w", err)
	}
	return nil
}
