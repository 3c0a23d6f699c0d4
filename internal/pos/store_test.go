package pos

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client, time.Hour), mr
}

func TestStoreSaveLoadDelete(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	sale, err := store.Load(ctx, "s1", "main")
	require.NoError(t, err)
	require.Nil(t, sale)

	in := &Sale{ID: "sale-1", Status: StatusDraft, Items: []SaleItem{{ID: "i1", Description: "x", Qty: dec("2"), UnitPrice: dec("500")}}}
	in.Recompute()
	require.NoError(t, store.Save(ctx, "s1", "main", in))
	require.True(t, mr.Exists("ringpos:pos:s1:main:state"))

	out, err := store.Load(ctx, "s1", "main")
	require.NoError(t, err)
	require.Equal(t, "sale-1", out.ID)
	require.True(t, out.Total.Equal(dec("1000")))

	other, err := store.Load(ctx, "s1", "caja-2")
	require.NoError(t, err)
	require.Nil(t, other)

	require.NoError(t, store.Save(ctx, "s1", "main", nil))
	require.False(t, mr.Exists("ringpos:pos:s1:main:state"))
}

func TestStoreLockIsExclusivePerTerminal(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	unlock, err := store.Lock(ctx, "s1", "main")
	require.NoError(t, err)

	_, err = store.Lock(ctx, "s1", "main")
	require.ErrorIs(t, err, ErrBusy)

	unlockOther, err := store.Lock(ctx, "s1", "caja-2")
	require.NoError(t, err)
	unlockOther()

	unlock()
	require.False(t, mr.Exists("ringpos:pos:s1:main:lock"))

	again, err := store.Lock(ctx, "s1", "main")
	require.NoError(t, err)
	again()
}

func TestStoreLockReleaseDoesNotStealNewHolder(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	unlock, err := store.Lock(ctx, "s1", "main")
	require.NoError(t, err)
	mr.FastForward(time.Minute)

	_, err = store.Lock(ctx, "s1", "main")
	require.NoError(t, err)

	unlock()
	require.True(t, mr.Exists("ringpos:pos:s1:main:lock"))
}
