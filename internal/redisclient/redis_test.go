package redisclient

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/boardcheck/internal/config"
)

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := Connect(context.Background(), config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestOpenQueue(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := Connect(context.Background(), config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	conn, queue, err := OpenQueue(client, "notify-queue", nil)
	require.NoError(t, err)
	require.NoError(t, queue.PublishBytes([]byte(`{"id":"1"}`)))

	stats, err := conn.CollectStats([]string{"notify-queue"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.QueueStats["notify-queue"].ReadyCount)
}

func TestConnect_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := Connect(context.Background(), config.RedisConfig{Address: addr})
	assert.Error(t, err)
}
