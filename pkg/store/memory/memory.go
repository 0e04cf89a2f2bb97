// Package memory is an in-process record store with optimistic versions.
// It backs the CLI, fixtures and tests.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/goliatone/go-frontedit/pkg/model"
	"github.com/goliatone/go-frontedit/pkg/store"
)

// SaveHook runs before a record is persisted. A non-nil error aborts the save.
type SaveHook func(ctx context.Context, record model.Record) error

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for save diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSaveHook registers a hook that runs before each save.
func WithSaveHook(hook SaveHook) Option {
	return func(s *Store) { s.beforeSave = hook }
}

type entry struct {
	record     *store.Record
	owner      int64
	ownerField string
}

// Store keeps records in memory keyed by id and path.
type Store struct {
	mu         sync.RWMutex
	records    map[int64]entry
	paths      map[string]int64
	beforeSave SaveHook
	logger     *slog.Logger
}

var _ model.Store = (*Store)(nil)

// New constructs an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		records: make(map[int64]entry),
		paths:   make(map[string]int64),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Put stores a copy of rec, replacing any record with the same id.
func (s *Store) Put(rec *store.Record) {
	s.put(rec, 0, "")
}

// PutDerived stores rec as a child of the owner record held in ownerField.
func (s *Store) PutDerived(rec *store.Record, owner int64, ownerField string) {
	s.put(rec, owner, ownerField)
}

func (s *Store) put(rec *store.Record, owner int64, ownerField string) {
	if rec == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if previous, ok := s.records[rec.ID()]; ok && previous.record.Path() != "" {
		delete(s.paths, previous.record.Path())
	}
	s.records[rec.ID()] = entry{record: rec.Clone(), owner: owner, ownerField: ownerField}
	if rec.Path() != "" {
		s.paths[rec.Path()] = rec.ID()
	}
}

// Get resolves a numeric id or a path. Every call returns a fresh instance.
func (s *Store) Get(ctx context.Context, locator string) (model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, err := s.lookup(locator)
	if err != nil {
		return nil, err
	}
	return s.load(id, 0)
}

func (s *Store) lookup(locator string) (int64, error) {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return 0, fmt.Errorf("memory: empty locator: %w", store.ErrNotFound)
	}
	if id, err := strconv.ParseInt(locator, 10, 64); err == nil {
		if _, ok := s.records[id]; ok {
			return id, nil
		}
		return 0, fmt.Errorf("memory: record %d: %w", id, store.ErrNotFound)
	}
	if id, ok := s.paths[store.NormalizePath(locator)]; ok {
		return id, nil
	}
	return 0, fmt.Errorf("memory: path %q: %w", locator, store.ErrNotFound)
}

func (s *Store) load(id int64, depth int) (model.Record, error) {
	current, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("memory: record %d: %w", id, store.ErrNotFound)
	}
	rec := current.record.Clone()
	if current.owner == 0 {
		return rec, nil
	}
	if depth > 8 {
		return nil, fmt.Errorf("memory: record %d: owner chain too deep", id)
	}
	owner, err := s.load(current.owner, depth+1)
	if err != nil {
		return nil, fmt.Errorf("memory: owner of record %d: %w", id, err)
	}
	return store.NewDerivedRecord(rec, owner, current.ownerField), nil
}

// Save persists rec when its version matches the stored version. On success
// the version is bumped and tracked changes are cleared.
func (s *Store) Save(ctx context.Context, rec model.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target, err := unwrap(rec)
	if err != nil {
		return err
	}
	if s.beforeSave != nil {
		if err := s.beforeSave(ctx, rec); err != nil {
			return fmt.Errorf("memory: save record %d: %w", target.ID(), err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.records[target.ID()]
	if !ok {
		return fmt.Errorf("memory: save record %d: %w", target.ID(), store.ErrNotFound)
	}
	if current.record.Version() != target.Version() {
		s.logger.Debug("memory: version conflict",
			"record", target.ID(),
			"expected", target.Version(),
			"stored", current.record.Version(),
		)
		return fmt.Errorf("memory: save record %d: %w", target.ID(), store.ErrConcurrentModification)
	}

	target.SetVersion(target.Version() + 1)
	current.record = target.Clone()
	s.records[target.ID()] = current
	target.CommitChanges()
	s.logger.Debug("memory: record saved", "record", target.ID(), "version", target.Version())
	return nil
}

// IDs lists stored record ids in ascending order.
func (s *Store) IDs() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]int64, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func unwrap(rec model.Record) (*store.Record, error) {
	switch v := rec.(type) {
	case *store.Record:
		return v, nil
	case *store.DerivedRecord:
		return v.Record, nil
	default:
		return nil, fmt.Errorf("memory: %T: %w", rec, store.ErrUnsupportedRecord)
	}
}
