package worker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Bondebut/tripchat/internal/repository/mocks"
	"github.com/Bondebut/tripchat/internal/tasks"
	"github.com/Bondebut/tripchat/internal/worker"
)

func TestRoomTouchHandler_Success(t *testing.T) {
	// Arrange
	mockRoomRepo := new(mocks.RoomRepository)
	handler := worker.NewRoomTouchHandler(mockRoomRepo)
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	task, err := tasks.NewRoomTouchTask("r-1", at)
	require.NoError(t, err)

	mockRoomRepo.On("TouchLastActive", mock.Anything, "r-1", at).Return(nil).Once()

	// Act
	err = handler.ProcessTask(context.Background(), task)

	// Assert
	assert.NoError(t, err)
	mockRoomRepo.AssertExpectations(t)
}

func TestRoomTouchHandler_CorruptPayloadSkipsRetry(t *testing.T) {
	// Arrange: 负载损坏的任务不应进入重试
	mockRoomRepo := new(mocks.RoomRepository)
	handler := worker.NewRoomTouchHandler(mockRoomRepo)
	task := asynq.NewTask(tasks.TypeRoomTouch, []byte("{not json"))

	// Act
	err := handler.ProcessTask(context.Background(), task)

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
	mockRoomRepo.AssertNotCalled(t, "TouchLastActive", mock.Anything, mock.Anything, mock.Anything)
}

func TestRoomTouchHandler_RepoErrorIsRetryable(t *testing.T) {
	// Arrange
	mockRoomRepo := new(mocks.RoomRepository)
	handler := worker.NewRoomTouchHandler(mockRoomRepo)
	task, _ := tasks.NewRoomTouchTask("r-1", time.Now())

	mockRoomRepo.On("TouchLastActive", mock.Anything, "r-1", mock.AnythingOfType("time.Time")).
		Return(errors.New("db down")).Once()

	// Act
	err := handler.ProcessTask(context.Background(), task)

	// Assert: 普通仓储错误返回原样，交给 asynq 重试
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestMessageRetentionHandler_Success(t *testing.T) {
	// Arrange
	mockMsgRepo := new(mocks.MessageRepository)
	handler := worker.NewMessageRetentionHandler(mockMsgRepo)
	retention := 30 * 24 * time.Hour
	task, err := tasks.NewMessageRetentionTask(retention)
	require.NoError(t, err)

	mockMsgRepo.On("DeleteOlderThan", mock.Anything, mock.MatchedBy(func(cutoff time.Time) bool {
		expected := time.Now().Add(-retention)
		return cutoff.Sub(expected).Abs() < time.Minute
	})).Return(int64(42), nil).Once()

	// Act
	err = handler.ProcessTask(context.Background(), task)

	// Assert
	assert.NoError(t, err)
	mockMsgRepo.AssertExpectations(t)
}

func TestMessageRetentionHandler_CorruptPayloadSkipsRetry(t *testing.T) {
	mockMsgRepo := new(mocks.MessageRepository)
	handler := worker.NewMessageRetentionHandler(mockMsgRepo)
	task := asynq.NewTask(tasks.TypeMessageRetention, []byte("garbage"))

	err := handler.ProcessTask(context.Background(), task)

	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}
