package redisstore_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/storage/session/redisstore"
)

func TestStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR is not set")
	}
	ctx := context.Background()

	st, err := redisstore.Open(ctx, addr, 15)
	require.NoError(t, err)
	defer func() { _ = st.Close() }()
	require.NoError(t, st.Delete(ctx, session.StoreKey))

	v, err := st.Get(ctx, session.StoreKey)
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, st.Put(ctx, session.StoreKey, []byte(`{"access_token":"a"}`)))
	v, err = st.Get(ctx, session.StoreKey)
	require.NoError(t, err)
	assert.Equal(t, `{"access_token":"a"}`, string(v))

	require.NoError(t, st.Delete(ctx, session.StoreKey))
	v, err = st.Get(ctx, session.StoreKey)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestOpen_Unreachable(t *testing.T) {
	_, err := redisstore.Open(context.Background(), "127.0.0.1:1", 0)
	assert.Error(t, err)
}
