// Package editor holds the client-side state of one dance being edited: the
// formation list, the cursor, the working positions of the current formation
// and the autosave and optimistic-update machinery that keeps them in sync
// with the server.
package editor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"choreo-backend/internal/model"
)

const (
	DefaultDebounce = 500 * time.Millisecond
	requestTimeout  = 10 * time.Second
	tempIDPrefix    = "tmp-"
	savesBuffer     = 16
)

var (
	ErrNotLoaded      = errors.New("dance not loaded")
	ErrClosed         = errors.New("editor closed")
	ErrLastFormation  = errors.New("a dance needs at least one formation")
	ErrUnknownDancer  = errors.New("no such dancer in this formation")
	ErrNotDragging    = errors.New("no dancer is being dragged")
	ErrEmptyFormation = errors.New("dance has no formations")
)

// API the server operations the editor needs. *client.Client implements it.
type API interface {
	GetDance(ctx context.Context, id string) (*model.Dance, error)
	UpdateDance(ctx context.Context, id string, update model.DanceUpdate) error
	AddFormation(ctx context.Context, danceID string) (*model.Formation, error)
	UpdateFormation(ctx context.Context, danceID, formationID string, positions []model.Position) error
	DeleteFormation(ctx context.Context, danceID, formationID string) error
}

// Rect the on-screen area of the stage grid, in the same units as pointer
// coordinates.
type Rect struct {
	Left, Top, Width, Height float64
}

// Option configures an Editor.
type Option func(*Editor)

// WithDebounce sets the autosave quiet period.
func WithDebounce(d time.Duration) Option {
	return func(e *Editor) { e.quiet = d }
}

// WithCache shares a query cache between editors.
func WithCache(c *QueryCache[*model.Dance]) Option {
	return func(e *Editor) { e.cache = c }
}

// Editor state of one dance. All methods are safe for concurrent use.
// Network mutations are serialised; local edits never block on the network.
type Editor struct {
	api      API
	danceID  string
	cache    *QueryCache[*model.Dance]
	quiet    time.Duration
	schedule func(f func())

	// saveMu serialises network mutations and reconciliation.
	saveMu sync.Mutex

	mu       sync.Mutex
	dance    *model.Dance
	cursor   int
	dirty    map[string]struct{}
	dragging int
	closed   bool
	saves    chan error
}

// New creates an editor for danceID. Call Load before anything else.
func New(api API, danceID string, opts ...Option) *Editor {
	e := &Editor{
		api:      api,
		danceID:  danceID,
		quiet:    DefaultDebounce,
		dirty:    make(map[string]struct{}),
		dragging: -1,
		saves:    make(chan error, savesBuffer),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cache == nil {
		e.cache = NewQueryCache[*model.Dance](0)
	}
	e.schedule = debounce.New(e.quiet)
	return e
}

func (e *Editor) key() string {
	return "dance:" + e.danceID
}

func (e *Editor) fetch(ctx context.Context) (*model.Dance, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	return e.api.GetDance(ctx, e.danceID)
}

// Load fetches the dance and puts the cursor on its last formation.
func (e *Editor) Load(ctx context.Context) error {
	e.saveMu.Lock()
	defer e.saveMu.Unlock()

	d, err := e.cache.Fetch(ctx, e.key(), e.fetch)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.dance = d.Clone()
	e.cursor = max(len(e.dance.Formations)-1, 0)
	e.dirty = make(map[string]struct{})
	e.dragging = -1
	return nil
}

// Refresh pulls the server view and merges it with local state. Formations
// with unsaved edits keep their local positions.
func (e *Editor) Refresh(ctx context.Context) error {
	_, err := e.cache.Fetch(ctx, e.key(), e.fetch)
	if errors.Is(err, ErrStale) {
		return nil
	}
	if err != nil {
		return err
	}

	e.saveMu.Lock()
	defer e.saveMu.Unlock()
	if latest, ok := e.cache.Get(e.key()); ok {
		e.reconcile(latest)
	}
	return nil
}

// Dance returns a copy of the local view.
func (e *Editor) Dance() *model.Dance {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dance.Clone()
}

// Cursor returns the index of the current formation.
func (e *Editor) Cursor() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursor
}

// Current returns a copy of the current formation.
func (e *Editor) Current() (model.Formation, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	f := e.current()
	if f == nil {
		return model.Formation{}, false
	}
	return f.Clone(), true
}

// Dirty reports whether any formation has unsaved edits.
func (e *Editor) Dirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.dirty) > 0
}

// Dragging returns the dancer being dragged, or -1.
func (e *Editor) Dragging() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dragging
}

func (e *Editor) current() *model.Formation {
	if e.dance == nil || e.cursor < 0 || e.cursor >= len(e.dance.Formations) {
		return nil
	}
	return &e.dance.Formations[e.cursor]
}

// Select saves pending edits and moves the cursor to index i, clamped. The
// cursor moves even when the save fails; the save error is returned.
func (e *Editor) Select(ctx context.Context, i int) error {
	err := e.Flush(ctx)
	if errors.Is(err, ErrNotLoaded) {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cursor = lo.Clamp(i, 0, max(len(e.dance.Formations)-1, 0))
	e.dragging = -1
	return err
}

// Next moves to the following formation.
func (e *Editor) Next(ctx context.Context) error {
	return e.Select(ctx, e.Cursor()+1)
}

// Prev moves to the preceding formation.
func (e *Editor) Prev(ctx context.Context) error {
	return e.Select(ctx, e.Cursor()-1)
}

// BeginDrag starts dragging dancer in the current formation.
func (e *Editor) BeginDrag(dancer int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	f := e.current()
	if f == nil {
		return ErrEmptyFormation
	}
	if !lo.ContainsBy(f.Positions, func(p model.Position) bool { return p.DancerIndex == dancer }) {
		return ErrUnknownDancer
	}
	e.dragging = dancer
	return nil
}

// DragTo moves the dragged dancer to pointer (px, py) inside grid. The
// pointer is clamped into the grid first, so dancers never leave the stage.
func (e *Editor) DragTo(px, py float64, grid Rect) (model.Position, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dragging < 0 {
		return model.Position{}, ErrNotDragging
	}
	x := lo.Clamp(px-grid.Left, 0, grid.Width)
	y := lo.Clamp(py-grid.Top, 0, grid.Height)
	return e.move(e.dragging, percent(x, grid.Width), percent(y, grid.Height))
}

// EndDrag stops dragging. The last position is already scheduled for saving.
func (e *Editor) EndDrag() {
	e.mu.Lock()
	e.dragging = -1
	e.mu.Unlock()
}

// MoveDancer places dancer at (x, y) percent, clamped to the stage.
func (e *Editor) MoveDancer(dancer int, x, y float64) (model.Position, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.move(dancer, x, y)
}

func (e *Editor) move(dancer int, x, y float64) (model.Position, error) {
	if e.closed {
		return model.Position{}, ErrClosed
	}
	f := e.current()
	if f == nil {
		return model.Position{}, ErrEmptyFormation
	}
	_, i, ok := lo.FindIndexOf(f.Positions, func(p model.Position) bool { return p.DancerIndex == dancer })
	if !ok {
		return model.Position{}, ErrUnknownDancer
	}
	p := model.Position{DancerIndex: dancer, X: model.ClampPercent(x), Y: model.ClampPercent(y)}
	f.Positions[i] = p
	e.markDirty(f.ID)
	return p, nil
}

func percent(v, extent float64) float64 {
	if extent <= 0 {
		return model.StageMin
	}
	return model.ClampPercent(v / extent * model.StageMax)
}

// markDirty records an unsaved formation and restarts the quiet period.
// Caller holds e.mu.
func (e *Editor) markDirty(formationID string) {
	e.dirty[formationID] = struct{}{}
	e.schedule(e.autosave)
}

func (e *Editor) autosave() {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	e.publish(e.Flush(ctx))
}

func (e *Editor) publish(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	select {
	case e.saves <- err:
	default:
	}
}

// Saves delivers the outcome of every autosave: nil or the save error. The
// channel is closed by Close. Outcomes are dropped when nobody is reading.
func (e *Editor) Saves() <-chan error {
	return e.saves
}

// Flush saves every formation with unsaved edits, in formation order, and
// stops at the first failure. A failed save reverts that formation to its
// last confirmed positions.
func (e *Editor) Flush(ctx context.Context) error {
	e.saveMu.Lock()
	defer e.saveMu.Unlock()

	for {
		e.mu.Lock()
		if e.dance == nil {
			e.mu.Unlock()
			return ErrNotLoaded
		}
		next, ok := lo.Find(e.dance.Formations, func(f model.Formation) bool {
			_, dirty := e.dirty[f.ID]
			return dirty && !isTemp(f.ID)
		})
		if !ok {
			// drop marks of formations that no longer exist
			for id := range e.dirty {
				if e.dance.FormationIndex(id) < 0 {
					delete(e.dirty, id)
				}
			}
			e.mu.Unlock()
			return nil
		}
		delete(e.dirty, next.ID)
		positions := model.ClonePositions(next.Positions)
		e.mu.Unlock()

		if err := e.saveFormation(ctx, next.ID, positions); err != nil {
			return err
		}
	}
}

// saveFormation sends one formation. Caller holds saveMu.
func (e *Editor) saveFormation(ctx context.Context, formationID string, positions []model.Position) error {
	prev, err := e.view(ctx)
	if err != nil {
		return err
	}

	m := NewMutation(func(confirmed *model.Dance) {
		e.cache.Set(e.key(), confirmed)
		e.mu.Lock()
		defer e.mu.Unlock()
		if _, edited := e.dirty[formationID]; edited || e.dance == nil {
			return
		}
		if i, j := confirmed.FormationIndex(formationID), e.dance.FormationIndex(formationID); i >= 0 && j >= 0 {
			e.dance.Formations[j].Positions = model.ClonePositions(confirmed.Formations[i].Positions)
		}
	})

	e.cache.Cancel(e.key())
	_ = m.Begin(prev)
	optimistic := prev.Clone()
	if i := optimistic.FormationIndex(formationID); i >= 0 {
		optimistic.Formations[i].Positions = positions
	}
	e.cache.Set(e.key(), optimistic)

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	err = e.api.UpdateFormation(reqCtx, e.danceID, formationID, positions)
	cancel()
	e.settle(ctx, m, err)
	return err
}

// AddFormation appends a copy of the current last formation. The copy shows
// up at once under a temporary id and is replaced by the server's formation
// on success or removed on failure.
func (e *Editor) AddFormation(ctx context.Context) (model.Formation, error) {
	if err := e.Flush(ctx); err != nil {
		return model.Formation{}, err
	}

	e.saveMu.Lock()
	defer e.saveMu.Unlock()

	cached, _ := e.cache.Get(e.key())
	e.cache.Cancel(e.key())

	e.mu.Lock()
	if e.dance == nil {
		e.mu.Unlock()
		return model.Formation{}, ErrNotLoaded
	}
	m := NewMutation(e.restore)
	_ = m.Begin(e.snapshot(cached))

	positions := model.SeedPositions(e.dance.NumberOfDancers)
	if n := len(e.dance.Formations); n > 0 {
		positions = model.ClonePositions(e.dance.Formations[n-1].Positions)
	}
	tempID := tempIDPrefix + uuid.NewString()
	e.dance.Formations = append(e.dance.Formations, model.Formation{ID: tempID, Positions: positions})
	e.cursor = len(e.dance.Formations) - 1
	e.dragging = -1
	e.cache.Set(e.key(), e.dance.Clone())
	e.mu.Unlock()

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	added, err := e.api.AddFormation(reqCtx, e.danceID)
	cancel()
	if err != nil {
		e.settle(ctx, m, err)
		return model.Formation{}, err
	}

	e.mu.Lock()
	if i := e.dance.FormationIndex(tempID); i >= 0 {
		local := e.dance.Formations[i]
		e.dance.Formations[i] = added.Clone()
		if _, edited := e.dirty[tempID]; edited {
			delete(e.dirty, tempID)
			e.dance.Formations[i].Positions = local.Positions
			e.markDirty(added.ID)
		}
	}
	e.mu.Unlock()

	e.settle(ctx, m, nil)
	return added.Clone(), nil
}

// DeleteFormation removes the current formation. The last remaining
// formation cannot be deleted.
func (e *Editor) DeleteFormation(ctx context.Context) error {
	e.saveMu.Lock()
	defer e.saveMu.Unlock()

	cached, _ := e.cache.Get(e.key())

	e.mu.Lock()
	if e.dance == nil {
		e.mu.Unlock()
		return ErrNotLoaded
	}
	if len(e.dance.Formations) <= 1 {
		e.mu.Unlock()
		return ErrLastFormation
	}
	e.cache.Cancel(e.key())
	m := NewMutation(e.restore)
	_ = m.Begin(e.snapshot(cached))

	removed := e.dance.Formations[e.cursor]
	e.dance.Formations = append(e.dance.Formations[:e.cursor:e.cursor], e.dance.Formations[e.cursor+1:]...)
	delete(e.dirty, removed.ID)
	e.cursor = min(e.cursor, len(e.dance.Formations)-1)
	e.dragging = -1
	e.cache.Set(e.key(), e.dance.Clone())
	e.mu.Unlock()

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	err := e.api.DeleteFormation(reqCtx, e.danceID, removed.ID)
	cancel()
	e.settle(ctx, m, err)
	return err
}

// UpdateInfo renames and/or resizes the dance. After the server accepts a
// new dancer count every formation is repaired locally (extra dancers
// dropped, missing ones added on the back line) and scheduled for saving.
func (e *Editor) UpdateInfo(ctx context.Context, update model.DanceUpdate) error {
	if update.NumberOfDancers != nil {
		if err := model.ValidateDancerCount(*update.NumberOfDancers); err != nil {
			return err
		}
	}
	if err := e.Flush(ctx); err != nil {
		return err
	}

	e.saveMu.Lock()
	defer e.saveMu.Unlock()

	cached, _ := e.cache.Get(e.key())

	e.mu.Lock()
	if e.dance == nil {
		e.mu.Unlock()
		return ErrNotLoaded
	}
	e.cache.Cancel(e.key())
	m := NewMutation(e.restore)
	_ = m.Begin(e.snapshot(cached))
	if update.Name != nil {
		e.dance.Name = *update.Name
	}
	if update.NumberOfDancers != nil {
		e.dance.NumberOfDancers = *update.NumberOfDancers
	}
	e.cache.Set(e.key(), e.dance.Clone())
	e.mu.Unlock()

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	err := e.api.UpdateDance(reqCtx, e.danceID, update)
	cancel()
	if err != nil {
		e.settle(ctx, m, err)
		return err
	}

	e.mu.Lock()
	for i, f := range e.dance.Formations {
		repaired := model.RepairPositions(f.Positions, e.dance.NumberOfDancers)
		if len(repaired) != len(f.Positions) || !lo.Every(f.Positions, repaired) {
			e.dance.Formations[i].Positions = repaired
			e.markDirty(f.ID)
		}
	}
	e.mu.Unlock()

	e.settle(ctx, m, nil)
	return nil
}

// Close saves pending edits and stops autosave. Saves is closed afterwards.
func (e *Editor) Close(ctx context.Context) error {
	e.schedule(func() {})

	err := e.Flush(ctx)
	if errors.Is(err, ErrNotLoaded) {
		err = nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.saves)
	}
	return err
}

type snapshot struct {
	dance  *model.Dance
	cached *model.Dance
	cursor int
	dirty  map[string]struct{}
}

// snapshot captures local state. Caller holds e.mu.
func (e *Editor) snapshot(cached *model.Dance) snapshot {
	dirty := make(map[string]struct{}, len(e.dirty))
	for id := range e.dirty {
		dirty[id] = struct{}{}
	}
	return snapshot{dance: e.dance.Clone(), cached: cached, cursor: e.cursor, dirty: dirty}
}

func (e *Editor) restore(s snapshot) {
	if s.cached != nil {
		e.cache.Set(e.key(), s.cached)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dance = s.dance
	e.cursor = s.cursor
	e.dirty = s.dirty
	e.dragging = -1
}

// settle commits or reverts m, then invalidates the cache and refetches so
// the local view converges on the server's.
func (e *Editor) settle(ctx context.Context, m interface {
	Commit() error
	Revert() error
}, err error) {
	if err != nil {
		_ = m.Revert()
	} else {
		_ = m.Commit()
	}

	e.cache.Invalidate(e.key())
	latest, ferr := e.cache.Fetch(ctx, e.key(), e.fetch)
	if ferr != nil {
		return
	}
	e.reconcile(latest)
}

// view returns the last known server view, fetching it if needed.
func (e *Editor) view(ctx context.Context) (*model.Dance, error) {
	if d, ok := e.cache.Get(e.key()); ok {
		return d, nil
	}
	return e.cache.Fetch(ctx, e.key(), e.fetch)
}

// reconcile replaces local state with the server view, keeping unsaved
// local positions. Caller holds saveMu.
func (e *Editor) reconcile(server *model.Dance) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dance == nil {
		return
	}

	var currentID string
	if f := e.current(); f != nil {
		currentID = f.ID
	}

	next := server.Clone()
	for i, f := range next.Formations {
		if _, edited := e.dirty[f.ID]; !edited {
			continue
		}
		if j := e.dance.FormationIndex(f.ID); j >= 0 {
			next.Formations[i].Positions = model.ClonePositions(e.dance.Formations[j].Positions)
		}
	}
	e.dance = next

	if i := next.FormationIndex(currentID); i >= 0 {
		e.cursor = i
	} else {
		e.cursor = lo.Clamp(e.cursor, 0, max(len(next.Formations)-1, 0))
	}
}

func isTemp(id string) bool {
	return strings.HasPrefix(id, tempIDPrefix)
}
