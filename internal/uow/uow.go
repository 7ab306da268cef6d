package uow

import (
	"context"

	"github.com/kirinyoku/parkgo/internal/repository/memory"
)

// AfterCommit is a function that runs after a successful commit, once the
// store lock has been released.
type AfterCommit func(ctx context.Context)

// UoW represents a unit of work over the lot store.
type UoW struct {
	store *memory.Store
}

func NewUoW(store *memory.Store) *UoW {
	return &UoW{store: store}
}

// Do runs fn with exclusive access to the lot. After fn succeeds and the lock
// is released, it executes all registered after-commit hooks in order.
// Hooks are discarded when fn fails.
func (u *UoW) Do(
	ctx context.Context,
	fn func(ctx context.Context, tx *memory.Tx, after func(AfterCommit)) error,
) error {
	var hooks []AfterCommit

	err := u.store.RunTx(ctx, func(ctx context.Context, tx *memory.Tx) error {
		return fn(ctx, tx, func(h AfterCommit) {
			hooks = append(hooks, h)
		})
	})
	if err != nil {
		return err
	}

	for _, h := range hooks {
		h(context.WithoutCancel(ctx))
	}

	return nil
}
