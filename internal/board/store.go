package board

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ldi/corkboard/pkg/models"
)

// Store is the single owner of board state. It is safe for concurrent use;
// transitions are serialized by one mutex.
type Store struct {
	mu       sync.RWMutex
	state    *State
	filter   models.Filter
	defaults Defaults

	// version bumps on every entity change, filterVersion on every change
	// of the transient criteria. Selectors key their caches on both.
	version       uint64
	filterVersion uint64

	persister Persister
	now       func() time.Time
	logger    *slog.Logger

	onChange         []func(ctx context.Context)
	onChangeMu       sync.RWMutex
	onChangeDisabled bool

	selector *Selector
}

type Option func(*Store)

// WithPersister sets where state is loaded from and mirrored to.
func WithPersister(p Persister) Option {
	return func(s *Store) { s.persister = p }
}

// WithClock overrides time.Now, mostly for tests of due-date buckets.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithDefaults sets the board a fresh or unreadable state starts with.
// Columns repeating an earlier name or id are dropped.
func WithDefaults(d Defaults) Option {
	return func(s *Store) {
		if d.BoardName == "" {
			d.BoardName = defaultDefaults().BoardName
		}
		d.Columns = uniqueColumns(d.Columns)
		if len(d.Columns) == 0 {
			d.Columns = models.DefaultColumns
		}
		s.defaults = d
	}
}

// New builds a store and seeds it from the persister. A missing or malformed
// stored state falls back to the defaults.
func New(ctx context.Context, opts ...Option) *Store {
	s := &Store{
		defaults:  defaultDefaults(),
		persister: nopPersister{},
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.selector = newSelector(s)

	loaded, err := s.persister.Load(ctx)
	switch {
	case err != nil:
		s.logger.Warn("stored board state unreadable, starting from defaults", "error", err)
		s.state = NewState(s.defaults, s.now())
	case loaded == nil:
		s.state = NewState(s.defaults, s.now())
	default:
		loaded.normalize(s.defaults, s.now())
		s.state = loaded
	}
	return s
}

// OnChange registers fn to run after every transition that changed state.
// Hooks run in registration order, outside the store lock.
func (s *Store) OnChange(fn func(ctx context.Context)) {
	s.onChangeMu.Lock()
	defer s.onChangeMu.Unlock()
	s.onChange = append(s.onChange, fn)
}

func (s *Store) DisableOnChange() {
	s.onChangeMu.Lock()
	defer s.onChangeMu.Unlock()
	s.onChangeDisabled = true
}

func (s *Store) EnableOnChange() {
	s.onChangeMu.Lock()
	defer s.onChangeMu.Unlock()
	s.onChangeDisabled = false
}

func (s *Store) triggerChange(ctx context.Context) {
	s.onChangeMu.RLock()
	hooks := s.onChange
	disabled := s.onChangeDisabled
	s.onChangeMu.RUnlock()

	if disabled {
		return
	}
	for _, fn := range hooks {
		fn(ctx)
	}
}

// apply runs one transition under the write lock. fn reports whether it
// changed anything; only then is the version bumped and the state saved.
func (s *Store) apply(ctx context.Context, op string, fn func(st *State) bool) bool {
	s.mu.Lock()
	changed := fn(s.state)
	if changed {
		s.version++
		// Save stays under the lock so writes reach storage in transition order.
		if err := s.persister.Save(ctx, s.state); err != nil {
			s.logger.Warn("failed to persist board state", "op", op, "error", err)
		}
	} else {
		s.logger.Debug("transition was a no-op", "op", op)
	}
	s.mu.Unlock()

	if changed {
		s.triggerChange(ctx)
	}
	return changed
}

func (s *Store) applyFilter(fn func(f *models.Filter) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !fn(&s.filter) {
		return false
	}
	s.filterVersion++
	return true
}

// Version identifies the current entity state. It changes after every
// transition that modified boards, columns or tasks.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Snapshot returns a deep copy of the entity state.
func (s *Store) Snapshot() *State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Boards returns copies of all boards in order.
func (s *Store) Boards() []*models.Board {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Board, 0, len(s.state.Boards))
	for _, b := range s.state.Boards {
		out = append(out, b.Clone())
	}
	return out
}

func (s *Store) Board(id string) (*models.Board, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.state.Board(id)
	if !ok {
		return nil, false
	}
	return b.Clone(), true
}

// CurrentBoard returns a copy of the board the session is working on.
func (s *Store) CurrentBoard() (*models.Board, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.state.Current()
	if !ok {
		return nil, false
	}
	return b.Clone(), true
}

func (s *Store) CurrentBoardID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.CurrentBoardID
}

func (s *Store) Task(id string) (*models.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	loc, ok := s.state.locate(id)
	if !ok {
		return nil, false
	}
	return loc.column.Tasks[loc.index].Clone(), true
}

// Locate returns the column holding the task and the task's position in it.
func (s *Store) Locate(taskID string) (columnID string, index int, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	loc, ok := s.state.locate(taskID)
	if !ok {
		return "", -1, false
	}
	return loc.column.ID, loc.index, true
}

// ColumnTaskIDs lists the task ids of a column of the current board in order.
func (s *Store) ColumnTaskIDs(columnID string) ([]string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.state.Current()
	if !ok {
		return nil, false
	}
	c, ok := b.Column(columnID)
	if !ok {
		return nil, false
	}
	ids := make([]string, len(c.Tasks))
	for i, t := range c.Tasks {
		ids[i] = t.ID
	}
	return ids, true
}

func (s *Store) Filter() models.Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}
