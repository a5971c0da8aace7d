package redis_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fieldmap-service/internal/domain"
	redisRepo "github.com/fieldmap-service/internal/repository/redis"
)

const (
	testRequestStream = "test:stream:basemap:request"
	testDoneStream    = "test:stream:basemap:done"
)

// getTestRedisClient подключается к локальному Redis или пропускает тест
func getTestRedisClient(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for integration tests: %v", err)
	}

	client.Del(ctx, testRequestStream, testDoneStream)
	t.Cleanup(func() {
		client.Del(context.Background(), testRequestStream, testDoneStream)
		client.Close()
	})
	return client
}

func newRequest() *domain.BasemapRequestEvent {
	return &domain.BasemapRequestEvent{
		JobID:  uuid.New(),
		AOI:    "-105.642662,39.917580,-105.631343,39.929250",
		Zooms:  "12-14",
		Source: "esri",
		Output: "area.mbtiles",
	}
}

func TestStreamRepository_CreateConsumerGroup(t *testing.T) {
	client := getTestRedisClient(t)
	repo := redisRepo.NewStreamRepository(client, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.CreateConsumerGroup(ctx, testRequestStream, "test-group"))

	groups, err := client.XInfoGroups(ctx, testRequestStream).Result()
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "test-group", groups[0].Name)

	// BUSYGROUP не считается ошибкой
	assert.NoError(t, repo.CreateConsumerGroup(ctx, testRequestStream, "test-group"))
}

func TestStreamRepository_PublishToStream(t *testing.T) {
	client := getTestRedisClient(t)
	repo := redisRepo.NewStreamRepository(client, zap.NewNop())
	ctx := context.Background()

	event := &domain.BasemapDoneEvent{
		JobID:  uuid.New(),
		Path:   "/data/area.mbtiles",
		Report: &domain.FetchReport{Total: 10, Fetched: 8, Skipped: 1, Failed: 1},
	}
	require.NoError(t, repo.PublishToStream(ctx, testDoneStream, event))

	messages, err := client.XRead(ctx, &redis.XReadArgs{
		Streams: []string{testDoneStream, "0"},
		Count:   1,
	}).Result()
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Len(t, messages[0].Messages, 1)

	data, ok := messages[0].Messages[0].Values["data"].(string)
	require.True(t, ok)

	var received domain.BasemapDoneEvent
	require.NoError(t, json.Unmarshal([]byte(data), &received))
	assert.Equal(t, event.JobID, received.JobID)
	require.NotNil(t, received.Report)
	assert.Equal(t, *event.Report, *received.Report)
}

func TestStreamRepository_ConsumeStream_ReadsBacklog(t *testing.T) {
	client := getTestRedisClient(t)
	repo := redisRepo.NewStreamRepository(client, zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// задача поставлена до создания группы
	event := newRequest()
	require.NoError(t, repo.PublishToStream(ctx, testRequestStream, event))
	require.NoError(t, repo.CreateConsumerGroup(ctx, testRequestStream, "test-consumer-group"))

	msgs, err := repo.ConsumeStream(ctx, testRequestStream, "test-consumer-group", "worker-1")
	require.NoError(t, err)

	select {
	case msg := <-msgs:
		var received domain.BasemapRequestEvent
		require.NoError(t, json.Unmarshal([]byte(msg.Data), &received))
		assert.Equal(t, event.JobID, received.JobID)
		assert.Equal(t, "12-14", received.Zooms)
	case <-time.After(3 * time.Second):
		t.Fatal("Timeout waiting for message")
	}
}

func TestStreamRepository_ConsumeStream_RedeliversPending(t *testing.T) {
	client := getTestRedisClient(t)
	repo := redisRepo.NewStreamRepository(client, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.CreateConsumerGroup(ctx, testRequestStream, "test-pending-group"))
	require.NoError(t, repo.PublishToStream(ctx, testRequestStream, newRequest()))

	// сообщение выдано worker-1, но не подтверждено
	first, err := client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    "test-pending-group",
		Consumer: "worker-1",
		Streams:  []string{testRequestStream, ">"},
		Count:    1,
	}).Result()
	require.NoError(t, err)
	pendingID := first[0].Messages[0].ID

	consumeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	msgs, err := repo.ConsumeStream(consumeCtx, testRequestStream, "test-pending-group", "worker-1")
	require.NoError(t, err)

	select {
	case msg := <-msgs:
		assert.Equal(t, pendingID, msg.ID)
	case <-time.After(3 * time.Second):
		t.Fatal("Pending message was not redelivered")
	}
}

func TestStreamRepository_AckMessage(t *testing.T) {
	client := getTestRedisClient(t)
	repo := redisRepo.NewStreamRepository(client, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.CreateConsumerGroup(ctx, testRequestStream, "test-ack-group"))
	require.NoError(t, repo.PublishToStream(ctx, testRequestStream, newRequest()))

	messages, err := client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    "test-ack-group",
		Consumer: "worker-1",
		Streams:  []string{testRequestStream, ">"},
		Count:    1,
	}).Result()
	require.NoError(t, err)
	require.Len(t, messages, 1)
	messageID := messages[0].Messages[0].ID

	pending, err := client.XPending(ctx, testRequestStream, "test-ack-group").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending.Count)

	require.NoError(t, repo.AckMessage(ctx, testRequestStream, "test-ack-group", messageID))

	pending, err = client.XPending(ctx, testRequestStream, "test-ack-group").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending.Count)
}

func TestStreamRepository_ConsumeStream_ContextCancellation(t *testing.T) {
	client := getTestRedisClient(t)
	repo := redisRepo.NewStreamRepository(client, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, repo.CreateConsumerGroup(ctx, testRequestStream, "test-cancel-group"))

	msgs, err := repo.ConsumeStream(ctx, testRequestStream, "test-cancel-group", "worker-1")
	require.NoError(t, err)

	time.AfterFunc(100*time.Millisecond, cancel)

	timeout := time.After(3 * time.Second)
	for {
		select {
		case _, ok := <-msgs:
			if !ok {
				return
			}
		case <-timeout:
			t.Fatal("Channel not closed after context cancellation")
		}
	}
}
