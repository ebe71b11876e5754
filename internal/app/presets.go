package app

import (
	"context"
	"slices"

	"github.com/hylla/visning/internal/domain"
)

// SavePreset snapshots the current criteria under a name and persists the
// full preset set. Names may repeat; ids are fresh.
func (s *Service) SavePreset(ctx context.Context, name string, criteria domain.FilterCriteria) (domain.SavedFilter, error) {
	preset, err := domain.NewSavedFilter(s.idGen(), name, criteria, s.clock())
	if err != nil {
		return domain.SavedFilter{}, err
	}
	presets, err := s.repo.LoadSavedFilters(ctx)
	if err != nil {
		return domain.SavedFilter{}, err
	}
	presets = append(presets, preset)
	if err := s.repo.StoreSavedFilters(ctx, presets); err != nil {
		return domain.SavedFilter{}, err
	}
	return preset, nil
}

// DeletePreset removes one preset by id.
func (s *Service) DeletePreset(ctx context.Context, id string) error {
	presets, err := s.repo.LoadSavedFilters(ctx)
	if err != nil {
		return err
	}
	kept := slices.DeleteFunc(presets, func(p domain.SavedFilter) bool {
		return p.ID == id
	})
	if len(kept) == len(presets) {
		return ErrNotFound
	}
	return s.repo.StoreSavedFilters(ctx, kept)
}

// ApplyPreset returns the stored criteria for the caller to install as the
// active filter. Applying replaces the active criteria wholesale; merging is
// the caller's mistake to avoid.
func (s *Service) ApplyPreset(ctx context.Context, id string) (domain.FilterCriteria, error) {
	presets, err := s.repo.LoadSavedFilters(ctx)
	if err != nil {
		return domain.FilterCriteria{}, err
	}
	for _, preset := range presets {
		if preset.ID == id {
			return preset.Criteria.Clone(), nil
		}
	}
	return domain.FilterCriteria{}, ErrNotFound
}

// ListPresets returns every saved preset, oldest first.
func (s *Service) ListPresets(ctx context.Context) ([]domain.SavedFilter, error) {
	presets, err := s.repo.LoadSavedFilters(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(presets, func(a, b domain.SavedFilter) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return presets, nil
}
