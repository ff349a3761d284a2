package database

import (
	"context"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faresight/faresight-go/internal/config"
)

func TestNewRedisConnection(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	client, err := NewRedisConnection(config.RedisConfig{
		Host: mr.Host(),
		Port: port,
	})
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, client.HealthCheck(context.Background()))
}

func TestNewRedisConnection_Unreachable(t *testing.T) {
	_, err := NewRedisConnection(config.RedisConfig{
		Host: "127.0.0.1",
		Port: 1, // nothing listens here
	})
	assert.Error(t, err)
}
