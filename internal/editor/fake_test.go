package editor

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"choreo-backend/internal/model"
)

// fakeAPI an in-memory server holding one dance.
type fakeAPI struct {
	mu    sync.Mutex
	dance *model.Dance
	fail  map[string]error
	calls map[string]int
	// onAdd runs inside AddFormation before it returns.
	onAdd func()
}

func newFakeAPI(n int, formations int) *fakeAPI {
	d := &model.Dance{ID: "d1", UserID: "alice", Name: "Show", NumberOfDancers: n}
	for i := 0; i < formations; i++ {
		d.Formations = append(d.Formations, model.Formation{
			ID:        fmt.Sprintf("f%d", i),
			Positions: model.SeedPositions(n),
		})
	}
	return &fakeAPI{dance: d, fail: map[string]error{}, calls: map[string]int{}}
}

func (f *fakeAPI) enter(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	return f.fail[op]
}

func (f *fakeAPI) setFail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[op] = err
}

func (f *fakeAPI) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeAPI) server() *model.Dance {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dance.Clone()
}

func (f *fakeAPI) GetDance(ctx context.Context, id string) (*model.Dance, error) {
	if err := f.enter("GetDance"); err != nil {
		return nil, err
	}
	return f.server(), nil
}

func (f *fakeAPI) UpdateDance(ctx context.Context, id string, update model.DanceUpdate) error {
	if err := f.enter("UpdateDance"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if update.Name != nil {
		f.dance.Name = *update.Name
	}
	if update.NumberOfDancers != nil {
		f.dance.NumberOfDancers = *update.NumberOfDancers
	}
	return nil
}

func (f *fakeAPI) AddFormation(ctx context.Context, danceID string) (*model.Formation, error) {
	if f.onAdd != nil {
		f.onAdd()
	}
	if err := f.enter("AddFormation"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	positions := model.SeedPositions(f.dance.NumberOfDancers)
	if n := len(f.dance.Formations); n > 0 {
		positions = model.ClonePositions(f.dance.Formations[n-1].Positions)
	}
	added := model.Formation{ID: uuid.NewString(), Positions: positions}
	f.dance.Formations = append(f.dance.Formations, added)
	return &added, nil
}

func (f *fakeAPI) UpdateFormation(ctx context.Context, danceID, formationID string, positions []model.Position) error {
	if err := f.enter("UpdateFormation"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.dance.FormationIndex(formationID)
	if i < 0 {
		return fmt.Errorf("formation %s not found", formationID)
	}
	f.dance.Formations[i].Positions = model.ClonePositions(positions)
	return nil
}

func (f *fakeAPI) DeleteFormation(ctx context.Context, danceID, formationID string) error {
	if err := f.enter("DeleteFormation"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.dance.FormationIndex(formationID)
	if i < 0 {
		return fmt.Errorf("formation %s not found", formationID)
	}
	f.dance.Formations = append(f.dance.Formations[:i], f.dance.Formations[i+1:]...)
	return nil
}
