package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) (*RedisStorage, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s := NewRedisStorageFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestNewRedisStorageConnects(t *testing.T) {
	mr := miniredis.RunT(t)

	s, err := NewRedisStorage(mr.Addr(), "", 0)
	require.NoError(t, err)
	defer s.Close()
	assert.NoError(t, s.Ping(context.Background()))
}

func TestNewRedisStorageFailsWithoutServer(t *testing.T) {
	_, err := NewRedisStorage("127.0.0.1:1", "", 0)
	assert.Error(t, err)
}

func TestGetMissingKey(t *testing.T) {
	s, _ := newTestStorage(t)

	val, err := s.Get("nope")
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestSetAndGetUsePrefix(t *testing.T) {
	s, mr := newTestStorage(t)

	require.NoError(t, s.Set("ip:1.2.3.4", []byte("3"), 0))
	assert.True(t, mr.Exists("choreo:ip:1.2.3.4"))
	assert.False(t, mr.Exists("ip:1.2.3.4"))

	val, err := s.Get("ip:1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, []byte("3"), val)
}

func TestSetExpires(t *testing.T) {
	s, mr := newTestStorage(t)

	require.NoError(t, s.Set("k", []byte("v"), time.Minute))
	assert.Equal(t, time.Minute, mr.TTL("choreo:k"))

	mr.FastForward(time.Minute + time.Second)
	val, err := s.Get("k")
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestEmptyKeyAndValueAreIgnored(t *testing.T) {
	s, mr := newTestStorage(t)

	require.NoError(t, s.Set("", []byte("v"), 0))
	require.NoError(t, s.Set("k", nil, 0))
	assert.Empty(t, mr.Keys())

	val, err := s.Get("")
	require.NoError(t, err)
	assert.Nil(t, val)
	assert.NoError(t, s.Delete(""))
}

func TestDelete(t *testing.T) {
	s, mr := newTestStorage(t)

	require.NoError(t, s.Set("k", []byte("v"), 0))
	require.NoError(t, s.Delete("k"))
	assert.False(t, mr.Exists("choreo:k"))
	assert.NoError(t, s.Delete("k"), "deleting a missing key is fine")
}

func TestResetKeepsForeignKeys(t *testing.T) {
	s, mr := newTestStorage(t)

	require.NoError(t, mr.Set("other:key", "keep"))
	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, s.Set(k, []byte("1"), 0))
	}

	require.NoError(t, s.Reset())
	assert.Equal(t, []string{"other:key"}, mr.Keys())

	assert.NoError(t, s.Reset(), "reset on an empty prefix")
}
