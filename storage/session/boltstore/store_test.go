package boltstore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/storage/session/boltstore"
)

func TestStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "session.db")
	ctx := context.Background()

	st, err := boltstore.Open(path)
	require.NoError(t, err)

	v, err := st.Get(ctx, session.StoreKey)
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, st.Put(ctx, session.StoreKey, []byte(`{"access_token":"a"}`)))
	require.NoError(t, st.Close())

	// survives a restart
	st, err = boltstore.Open(path)
	require.NoError(t, err)
	defer func() { _ = st.Close() }()

	v, err = st.Get(ctx, session.StoreKey)
	require.NoError(t, err)
	assert.Equal(t, `{"access_token":"a"}`, string(v))

	require.NoError(t, st.Delete(ctx, session.StoreKey))
	v, err = st.Get(ctx, session.StoreKey)
	require.NoError(t, err)
	assert.Nil(t, v)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	assert.Error(t, st.Put(cctx, session.StoreKey, []byte("x")))
}
