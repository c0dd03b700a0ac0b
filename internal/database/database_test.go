package database

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyxmakerx/stockroom/internal/config"
)

func TestNewRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedis(context.Background(), config.RedisConfig{URL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	assert.Equal(t, "v", client.Get(context.Background(), "k").Val())
}

func TestNewRedis_BadURL(t *testing.T) {
	_, err := NewRedis(context.Background(), config.RedisConfig{URL: "http://nope"})
	assert.Error(t, err)
}

func TestNewRedis_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedis(context.Background(), config.RedisConfig{URL: "redis://" + addr})
	assert.Error(t, err)
}

func TestNewMongo_BadURI(t *testing.T) {
	_, err := NewMongo(context.Background(), config.MongoConfig{
		URI:      "not-a-mongo-uri",
		Database: "stockroom",
		Timeout:  time.Second,
	})
	assert.Error(t, err)
}
