package uow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/parkgo/internal/domain"
	"github.com/kirinyoku/parkgo/internal/fee"
	"github.com/kirinyoku/parkgo/internal/repository/memory"
	"github.com/kirinyoku/parkgo/internal/topology"
)

func newUoW(t *testing.T) (*UoW, *memory.Store) {
	t.Helper()
	calc, err := fee.New(domain.FeeRules{Currency: "USD"})
	require.NoError(t, err)
	store := memory.NewStore(calc)
	return NewUoW(store), store
}

func TestDo_RunsHooksAfterUnlock(t *testing.T) {
	u, store := newUoW(t)
	ctx := context.Background()

	var order []string
	err := u.Do(ctx, func(ctx context.Context, tx *memory.Tx, after func(AfterCommit)) error {
		lot, err := topology.New(3, 3, 10)
		require.NoError(t, err)

		after(func(ctx context.Context) {
			order = append(order, "first")
			// the store must be readable again from inside a hook
			err := store.View(ctx, func(r memory.Reader) error {
				_, err := r.Snapshot()
				return err
			})
			assert.NoError(t, err)
		})
		after(func(context.Context) { order = append(order, "second") })

		order = append(order, "body")
		return tx.Create(lot)
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"body", "first", "second"}, order)
}

func TestDo_SkipsHooksOnError(t *testing.T) {
	u, _ := newUoW(t)
	boom := errors.New("boom")

	called := false
	err := u.Do(context.Background(), func(ctx context.Context, tx *memory.Tx, after func(AfterCommit)) error {
		after(func(context.Context) { called = true })
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.False(t, called)
}
