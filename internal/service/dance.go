package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"choreo-backend/internal/model"
	"choreo-backend/internal/repository"
)

// ErrLastFormation deleting the only formation of a dance (strict mode)
var ErrLastFormation = errors.New("cannot delete the last formation")

// DanceService owner-scoped dance and formation operations
type DanceService struct {
	repo   repository.DanceRepository
	strict bool
}

// NewDanceService creates a DanceService. With strict set, every write keeps
// each formation's positions in sync with the dancer count.
func NewDanceService(repo repository.DanceRepository, strict bool) *DanceService {
	return &DanceService{repo: repo, strict: strict}
}

// Strict reports whether invariants are enforced on write.
func (s *DanceService) Strict() bool {
	return s.strict
}

// Create stores a new dance with one seed formation.
func (s *DanceService) Create(ctx context.Context, owner, name string, numberOfDancers int) (*model.Dance, error) {
	if err := model.ValidateDancerCount(numberOfDancers); err != nil {
		return nil, err
	}

	d := &model.Dance{
		UserID:          owner,
		Name:            name,
		NumberOfDancers: numberOfDancers,
		Formations: []model.Formation{{
			ID:        uuid.NewString(),
			Positions: model.SeedPositions(numberOfDancers),
		}},
	}
	if err := s.repo.Insert(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// List returns the owner's dances.
func (s *DanceService) List(ctx context.Context, owner string) ([]model.Dance, error) {
	return s.repo.ListByOwner(ctx, owner)
}

// Get returns one owned dance.
func (s *DanceService) Get(ctx context.Context, owner, id string) (*model.Dance, error) {
	return s.repo.FindOwned(ctx, owner, id)
}

// Update applies a partial metadata change. The count is validated before
// anything is written.
func (s *DanceService) Update(ctx context.Context, owner, id string, update model.DanceUpdate) error {
	if update.NumberOfDancers != nil {
		if err := model.ValidateDancerCount(*update.NumberOfDancers); err != nil {
			return err
		}
	}

	_, err := s.repo.Update(ctx, owner, id, func(d *model.Dance) error {
		if update.Name != nil {
			d.Name = *update.Name
		}
		if update.NumberOfDancers != nil {
			d.NumberOfDancers = *update.NumberOfDancers
			if s.strict {
				d.Formations, _ = model.RepairFormations(d.Formations, d.NumberOfDancers)
			}
		}
		return nil
	})
	return err
}

// Delete removes the dance. Deleting a missing or foreign dance is not an error.
func (s *DanceService) Delete(ctx context.Context, owner, id string) error {
	err := s.repo.Delete(ctx, owner, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	return err
}

// AddFormation appends a copy of the last formation under a new id. A dance
// without formations gets the seed layout instead.
func (s *DanceService) AddFormation(ctx context.Context, owner, id string) (*model.Formation, error) {
	var added model.Formation
	_, err := s.repo.Update(ctx, owner, id, func(d *model.Dance) error {
		positions := model.SeedPositions(d.NumberOfDancers)
		if n := len(d.Formations); n > 0 {
			positions = model.ClonePositions(d.Formations[n-1].Positions)
		}
		added = model.Formation{ID: uuid.NewString(), Positions: positions}
		d.Formations = append(d.Formations, added)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &added, nil
}

// UpdateFormation replaces one formation's positions.
func (s *DanceService) UpdateFormation(ctx context.Context, owner, id, formationID string, positions []model.Position) error {
	_, err := s.repo.Update(ctx, owner, id, func(d *model.Dance) error {
		i := d.FormationIndex(formationID)
		if i < 0 {
			return repository.ErrNotFound
		}
		if s.strict {
			if err := model.ValidatePositions(positions, d.NumberOfDancers); err != nil {
				return err
			}
		}
		d.Formations[i].Positions = model.ClonePositions(positions)
		return nil
	})
	return err
}

// DeleteFormation removes one formation.
func (s *DanceService) DeleteFormation(ctx context.Context, owner, id, formationID string) error {
	_, err := s.repo.Update(ctx, owner, id, func(d *model.Dance) error {
		i := d.FormationIndex(formationID)
		if i < 0 {
			return repository.ErrNotFound
		}
		if s.strict && len(d.Formations) == 1 {
			return ErrLastFormation
		}
		d.Formations = append(d.Formations[:i], d.Formations[i+1:]...)
		return nil
	})
	return err
}

// RepairAll fits every stored formation to its dance's dancer count. With
// dryRun set nothing is written. It returns the ids of affected dances.
func (s *DanceService) RepairAll(ctx context.Context, dryRun bool) ([]string, error) {
	type target struct{ owner, id string }
	var targets []target
	err := s.repo.All(ctx, func(d *model.Dance) error {
		if model.ValidateDancerCount(d.NumberOfDancers) != nil {
			return nil
		}
		if _, changed := model.RepairFormations(d.Formations, d.NumberOfDancers); changed {
			targets = append(targets, target{owner: d.UserID, id: d.ID})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ids := lo.Map(targets, func(t target, _ int) string { return t.id })
	if dryRun {
		return ids, nil
	}

	for _, t := range targets {
		_, err := s.repo.Update(ctx, t.owner, t.id, func(d *model.Dance) error {
			d.Formations, _ = model.RepairFormations(d.Formations, d.NumberOfDancers)
			return nil
		})
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}
	return ids, nil
}
