package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mat-tom-creator/fileledger/internal/model"
)

func TestMemory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("round-trips values and isolates the stored bytes", func(t *testing.T) {
		m := NewMemory()

		original := []byte("payload")
		require.NoError(t, m.Put(ctx, "file:1", original))
		original[0] = 'X'

		got, err := m.Get(ctx, "file:1")
		require.NoError(t, err)
		require.Equal(t, []byte("payload"), got)
	})

	t.Run("missing keys wrap the sentinel", func(t *testing.T) {
		m := NewMemory()

		_, err := m.Get(ctx, "absent")
		require.ErrorIs(t, err, model.ErrKeyNotFound)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		m := NewMemory()

		require.NoError(t, m.Put(ctx, "file:1", []byte("x")))
		require.NoError(t, m.Delete(ctx, "file:1"))
		require.NoError(t, m.Delete(ctx, "file:1"))

		_, err := m.Get(ctx, "file:1")
		require.ErrorIs(t, err, model.ErrKeyNotFound)
	})

	t.Run("list returns prefix matches in key order", func(t *testing.T) {
		m := NewMemory()

		require.NoError(t, m.Put(ctx, AuditKey("f", 2), []byte("c")))
		require.NoError(t, m.Put(ctx, AuditKey("f", 0), []byte("a")))
		require.NoError(t, m.Put(ctx, AuditKey("f", 1), []byte("b")))
		require.NoError(t, m.Put(ctx, FileKey("f"), []byte("other")))

		entries, err := m.List(ctx, AuditPrefix("f"))
		require.NoError(t, err)
		require.Len(t, entries, 3)
		require.Equal(t, []byte("a"), entries[0].Value)
		require.Equal(t, []byte("b"), entries[1].Value)
		require.Equal(t, []byte("c"), entries[2].Value)
	})
}
