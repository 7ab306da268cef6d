package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/kirinyoku/parkgo/internal/domain"
	"github.com/kirinyoku/parkgo/internal/fee"
	"github.com/kirinyoku/parkgo/internal/ledger"
	"github.com/kirinyoku/parkgo/internal/repository"
	"github.com/kirinyoku/parkgo/internal/topology"
)

// Store owns the single live lot and its session ledger. Writers run under
// the write lock through RunTx, readers under the read lock through View.
type Store struct {
	mu   sync.RWMutex
	calc *fee.Calculator
	gen  atomic.Uint64

	lot    *topology.Lot
	ledger *ledger.Ledger
}

func NewStore(calc *fee.Calculator) *Store {
	return &Store{calc: calc}
}

func (s *Store) Rules() domain.FeeRules {
	return s.calc.Rules()
}

// RunTx runs fn with exclusive access to the lot. A failing fn must leave
// the lot unchanged; Tx performs no rollback of its own.
func (s *Store) RunTx(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(ctx, &Tx{store: s}); err != nil {
		return err
	}

	s.gen.Add(1)

	return nil
}

// Generation counts committed transactions. It moves before the write lock
// is released, so a reader that observes generation g sees a lot at least as
// new as every commit up to g.
func (s *Store) Generation() uint64 {
	return s.gen.Load()
}

// View runs fn with shared access. fn must not mutate through the Reader.
func (s *Store) View(ctx context.Context, fn func(r Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return fn(Reader{store: s})
}

type Reader struct {
	store *Store
}

func (r Reader) Snapshot() (domain.LotSnapshot, error) {
	const op = "repository.memory.Reader.Snapshot"

	if r.store.lot == nil {
		return domain.LotSnapshot{}, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return r.store.lot.Snapshot(), nil
}

func (r Reader) Gate(id string) (domain.Gate, error) {
	const op = "repository.memory.Reader.Gate"

	if r.store.lot == nil {
		return domain.Gate{}, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	g, err := r.store.lot.Gate(id)
	if err != nil {
		return domain.Gate{}, fmt.Errorf("%s:%w", op, err)
	}

	return g, nil
}

// Sessions lists the ledger most recent first; empty when no lot exists.
func (r Reader) Sessions() []domain.Session {
	if r.store.ledger == nil {
		return []domain.Session{}
	}
	return r.store.ledger.List()
}

func (r Reader) SessionsByPlate(plate string) []domain.Session {
	if r.store.ledger == nil {
		return []domain.Session{}
	}
	return r.store.ledger.ListByPlate(plate)
}

// Tx is the write handle passed to RunTx callbacks.
type Tx struct {
	store *Store
}

// Generation is the store generation this transaction supersedes on commit.
func (t *Tx) Generation() uint64 {
	return t.store.gen.Load()
}

func (t *Tx) Reader() Reader {
	return Reader{store: t.store}
}

// Lot returns the live lot or repository.ErrNotFound.
func (t *Tx) Lot() (*topology.Lot, error) {
	const op = "repository.memory.Tx.Lot"

	if t.store.lot == nil {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return t.store.lot, nil
}

// Ledger returns the session ledger of the live lot or repository.ErrNotFound.
func (t *Tx) Ledger() (*ledger.Ledger, error) {
	const op = "repository.memory.Tx.Ledger"

	if t.store.ledger == nil {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return t.store.ledger, nil
}

// Create installs lot as the live lot with an empty ledger.
//
// Returns:
//   - error: repository.ErrConflict if a lot already exists.
func (t *Tx) Create(lot *topology.Lot) error {
	const op = "repository.memory.Tx.Create"

	if t.store.lot != nil {
		return fmt.Errorf("%s:%w", op, repository.ErrConflict)
	}

	t.store.lot = lot
	t.store.ledger = ledger.New(t.store.calc, lot)

	return nil
}

// Reset frees every slot and clears the ledger of the live lot.
func (t *Tx) Reset() error {
	const op = "repository.memory.Tx.Reset"

	if t.store.lot == nil {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	t.store.lot.Reset()
	t.store.ledger.Clear()

	return nil
}

// Drop removes the live lot and its ledger.
func (t *Tx) Drop() error {
	const op = "repository.memory.Tx.Drop"

	if t.store.lot == nil {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	t.store.lot = nil
	t.store.ledger = nil

	return nil
}
