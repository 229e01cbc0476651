package kvstore

import (
	"context"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStoreGet(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStore(client, "kv:", 0)

	mock.ExpectHMGet("kv:uninotes_users", "value", "version").SetVal([]interface{}{`{"a":1}`, "7"})
	mock.ExpectHMGet("kv:missing", "value", "version").SetVal([]interface{}{nil, "3"})
	mock.ExpectHMGet("kv:bad", "value", "version").SetVal([]interface{}{`{}`, "x"})

	doc, err := store.Get(context.Background(), "uninotes_users")
	require.NoError(t, err)
	assert.Equal(t, int64(7), doc.Version)
	assert.Equal(t, `{"a":1}`, string(doc.Value))

	_, err = store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Get(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrMalformed)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStoreSetRunsCompareAndSwapScript(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStore(client, "kv:", 0)

	mock.ExpectEvalSha(redisSetScript.Hash(), []string{"kv:k"}, `[]`, int64(0)).SetVal(int64(1))
	mock.ExpectEvalSha(redisSetScript.Hash(), []string{"kv:k"}, `[1]`, int64(5)).SetVal(int64(-1))

	v, err := store.Set(context.Background(), "k", []byte(`[]`), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	_, err = store.Set(context.Background(), "k", []byte(`[1]`), 5)
	assert.ErrorIs(t, err, ErrVersionConflict)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStoreDeleteDropsValueField(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStore(client, "kv:", 0)

	mock.ExpectHDel("kv:k", "value").SetVal(1)
	require.NoError(t, store.Delete(context.Background(), "k"))
	require.NoError(t, mock.ExpectationsWereMet())
}
