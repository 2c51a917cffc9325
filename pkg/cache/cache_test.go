package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docgate-ai/docgate/pkg/cache"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func TestSetPopulatesLocalLayer(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := cache.NewCacheWithClient(client, testLogger())

	mock.ExpectSet("schema:users", `{"eta":"number"}`, time.Minute).SetVal("OK")

	err := c.Set(context.Background(), "schema:users", `{"eta":"number"}`, time.Minute)
	require.NoError(t, err)

	// No Get expectation registered: a hit on the local layer never
	// touches Redis.
	value, err := c.Get(context.Background(), "schema:users")
	require.NoError(t, err)
	assert.Equal(t, `{"eta":"number"}`, value)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetFallsBackToRedis(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := cache.NewCacheWithClient(client, testLogger())

	mock.ExpectGet("schema:orders").SetVal(`{"totale":"number"}`)
	mock.ExpectTTL("schema:orders").SetVal(time.Minute)

	value, err := c.Get(context.Background(), "schema:orders")
	require.NoError(t, err)
	assert.Equal(t, `{"totale":"number"}`, value)

	// The Redis value is now cached locally.
	value, err = c.Get(context.Background(), "schema:orders")
	require.NoError(t, err)
	assert.Equal(t, `{"totale":"number"}`, value)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetMissReturnsError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := cache.NewCacheWithClient(client, testLogger())

	mock.ExpectGet("missing").RedisNil()

	_, err := c.Get(context.Background(), "missing")
	assert.Error(t, err)
}

func TestDeleteEvictsBothLayers(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := cache.NewCacheWithClient(client, testLogger())

	mock.ExpectSet("k", "v", time.Minute).SetVal("OK")
	mock.ExpectDel("k").SetVal(1)
	mock.ExpectGet("k").RedisNil()

	require.NoError(t, c.Set(context.Background(), "k", "v", time.Minute))
	require.NoError(t, c.Delete(context.Background(), "k"))

	_, err := c.Get(context.Background(), "k")
	assert.Error(t, err, "a deleted key must not survive in the local layer")
}
