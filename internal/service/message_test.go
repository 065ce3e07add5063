package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Bondebut/tripchat/internal/domain"
	"github.com/Bondebut/tripchat/internal/repository/mocks"
	"github.com/Bondebut/tripchat/internal/service"
)

var testSender = service.Identity{UserID: "u-1", Username: "alice"}

// --- 测试 Append 方法 ---

func TestMessageService_Append_Success(t *testing.T) {
	// Arrange
	mockMsgRepo := new(mocks.MessageRepository)
	mockStateRepo := new(mocks.StateRepository)
	msgService := service.NewMessageService(mockMsgRepo, mockStateRepo, 50, service.RetryPolicy{MaxAttempts: 3})
	ctx := context.Background()

	mockMsgRepo.On("Append", ctx, mock.MatchedBy(func(msg *domain.Message) bool {
		assert.Equal(t, "r-1", msg.RoomID)
		assert.Equal(t, "u-1", msg.SenderID)
		assert.Equal(t, "hello", msg.Content, "内容应在持久化前去除首尾空白")
		assert.Equal(t, "alice", msg.SenderName)
		assert.NotEmpty(t, msg.ID, "应在持久化前分配服务端 ID")
		assert.False(t, msg.SentAt.IsZero(), "应在持久化前分配服务端时间戳")
		return true
	})).Return(nil).Once()
	mockStateRepo.On("PushMessage", ctx, "r-1", mock.AnythingOfType("domain.Message")).Return(nil).Once()

	// Act
	msg, err := msgService.Append(ctx, "r-1", testSender, "  hello  ")

	// Assert: 返回的是提交后的规范记录
	assert.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "hello", msg.Content)
	assert.NotEmpty(t, msg.ID)

	// Verify
	mockMsgRepo.AssertExpectations(t)
	mockStateRepo.AssertExpectations(t)
}

func TestMessageService_Append_InvalidInput(t *testing.T) {
	// Arrange
	mockMsgRepo := new(mocks.MessageRepository)
	msgService := service.NewMessageService(mockMsgRepo, nil, 50, service.RetryPolicy{})
	ctx := context.Background()

	cases := []struct {
		name    string
		roomID  string
		sender  service.Identity
		content string
	}{
		{"空房间 ID", "", testSender, "hello"},
		{"空发送者", "r-1", service.Identity{}, "hello"},
		{"空内容", "r-1", testSender, ""},
		{"纯空白内容", "r-1", testSender, "   \t\n  "},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := msgService.Append(ctx, tc.roomID, tc.sender, tc.content)
			require.Error(t, err)
			assert.True(t, errors.Is(err, service.ErrInvalidRequest))
		})
	}
	mockMsgRepo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestMessageService_Append_RetriesThenSucceeds(t *testing.T) {
	// Arrange: 前两次写入失败，第三次成功
	mockMsgRepo := new(mocks.MessageRepository)
	msgService := service.NewMessageService(mockMsgRepo, nil, 50, service.RetryPolicy{MaxAttempts: 3, Delay: time.Millisecond})
	ctx := context.Background()
	dbErr := errors.New("connection reset")

	mockMsgRepo.On("Append", ctx, mock.AnythingOfType("*domain.Message")).Return(dbErr).Twice()
	mockMsgRepo.On("Append", ctx, mock.AnythingOfType("*domain.Message")).Return(nil).Once()

	// Act
	msg, err := msgService.Append(ctx, "r-1", testSender, "retry me")

	// Assert
	assert.NoError(t, err, "重试范围内成功时不应返回错误")
	require.NotNil(t, msg)
	mockMsgRepo.AssertNumberOfCalls(t, "Append", 3)
}

func TestMessageService_Append_AllAttemptsFail(t *testing.T) {
	// Arrange: 存储持续不可用，耗尽全部尝试
	mockMsgRepo := new(mocks.MessageRepository)
	msgService := service.NewMessageService(mockMsgRepo, nil, 50, service.RetryPolicy{MaxAttempts: 3, Delay: time.Millisecond})
	ctx := context.Background()

	mockMsgRepo.On("Append", ctx, mock.AnythingOfType("*domain.Message")).
		Return(errors.New("db down")).Times(3)

	// Act
	msg, err := msgService.Append(ctx, "r-1", testSender, "doomed")

	// Assert: 消息被丢弃，错误为 ErrPersistenceFailed
	require.Error(t, err)
	assert.Nil(t, msg)
	assert.True(t, errors.Is(err, service.ErrPersistenceFailed))
	mockMsgRepo.AssertNumberOfCalls(t, "Append", 3)
}

func TestMessageService_Append_CachePushFailureIsNonFatal(t *testing.T) {
	// Arrange: 缓存写入失败不影响已提交的消息
	mockMsgRepo := new(mocks.MessageRepository)
	mockStateRepo := new(mocks.StateRepository)
	msgService := service.NewMessageService(mockMsgRepo, mockStateRepo, 50, service.RetryPolicy{})
	ctx := context.Background()

	mockMsgRepo.On("Append", ctx, mock.AnythingOfType("*domain.Message")).Return(nil).Once()
	mockStateRepo.On("PushMessage", ctx, "r-1", mock.AnythingOfType("domain.Message")).
		Return(errors.New("redis down")).Once()

	// Act
	msg, err := msgService.Append(ctx, "r-1", testSender, "still committed")

	// Assert
	assert.NoError(t, err)
	require.NotNil(t, msg)
}

// --- 测试 RecentHistory 方法 ---

func makeMessages(n int, roomID string) []domain.Message {
	msgs := make([]domain.Message, n)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := range msgs {
		msgs[i] = domain.Message{
			ID:      string(rune('a' + i)),
			RoomID:  roomID,
			Content: "msg",
			SentAt:  base.Add(time.Duration(i) * time.Second),
		}
	}
	return msgs
}

func TestMessageService_RecentHistory_CacheHit(t *testing.T) {
	// Arrange: 缓存已满，按最新在前返回，服务应反转为时间正序
	mockMsgRepo := new(mocks.MessageRepository)
	mockStateRepo := new(mocks.StateRepository)
	msgService := service.NewMessageService(mockMsgRepo, mockStateRepo, 3, service.RetryPolicy{})
	ctx := context.Background()

	chronological := makeMessages(3, "r-1")
	newestFirst := []domain.Message{chronological[2], chronological[1], chronological[0]}
	mockStateRepo.On("RecentMessages", ctx, "r-1", 3).Return(newestFirst, nil).Once()

	// Act
	got, err := msgService.RecentHistory(ctx, "r-1")

	// Assert
	assert.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, got[0].SentAt.Before(got[1].SentAt), "历史应按时间正序")
	assert.True(t, got[1].SentAt.Before(got[2].SentAt), "历史应按时间正序")
	mockMsgRepo.AssertNotCalled(t, "RecentByRoom", mock.Anything, mock.Anything, mock.Anything)
}

func TestMessageService_RecentHistory_CacheInsufficientFallsBack(t *testing.T) {
	// Arrange: 缓存条数不足时回源数据库并重建缓存
	mockMsgRepo := new(mocks.MessageRepository)
	mockStateRepo := new(mocks.StateRepository)
	msgService := service.NewMessageService(mockMsgRepo, mockStateRepo, 5, service.RetryPolicy{})
	ctx := context.Background()

	fromDB := makeMessages(4, "r-1")
	mockStateRepo.On("RecentMessages", ctx, "r-1", 5).Return([]domain.Message{fromDB[3]}, nil).Once()
	mockMsgRepo.On("RecentByRoom", ctx, "r-1", 5).Return(fromDB, nil).Once()
	mockStateRepo.On("PrimeHistory", ctx, "r-1", fromDB).Return(nil).Once()

	// Act
	got, err := msgService.RecentHistory(ctx, "r-1")

	// Assert
	assert.NoError(t, err)
	assert.Len(t, got, 4)
	mockMsgRepo.AssertExpectations(t)
	mockStateRepo.AssertExpectations(t)
}

func TestMessageService_RecentHistory_CacheErrorFallsBack(t *testing.T) {
	// Arrange: 缓存读取出错时仍能从数据库取历史
	mockMsgRepo := new(mocks.MessageRepository)
	mockStateRepo := new(mocks.StateRepository)
	msgService := service.NewMessageService(mockMsgRepo, mockStateRepo, 5, service.RetryPolicy{})
	ctx := context.Background()

	fromDB := makeMessages(2, "r-1")
	mockStateRepo.On("RecentMessages", ctx, "r-1", 5).Return(nil, errors.New("redis down")).Once()
	mockMsgRepo.On("RecentByRoom", ctx, "r-1", 5).Return(fromDB, nil).Once()
	mockStateRepo.On("PrimeHistory", ctx, "r-1", fromDB).Return(nil).Once()

	// Act
	got, err := msgService.RecentHistory(ctx, "r-1")

	// Assert
	assert.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestMessageService_RecentHistory_DatabaseError(t *testing.T) {
	// Arrange
	mockMsgRepo := new(mocks.MessageRepository)
	msgService := service.NewMessageService(mockMsgRepo, nil, 5, service.RetryPolicy{})
	ctx := context.Background()

	mockMsgRepo.On("RecentByRoom", ctx, "r-1", 5).Return(nil, errors.New("db down")).Once()

	// Act
	_, err := msgService.RecentHistory(ctx, "r-1")

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrPersistenceFailed))
}

func TestMessageService_RecentHistory_EmptyRoom(t *testing.T) {
	// Arrange: 没有历史的房间返回空切片而不是错误
	mockMsgRepo := new(mocks.MessageRepository)
	msgService := service.NewMessageService(mockMsgRepo, nil, 5, service.RetryPolicy{})
	ctx := context.Background()

	mockMsgRepo.On("RecentByRoom", ctx, "r-empty", 5).Return([]domain.Message{}, nil).Once()

	// Act
	got, err := msgService.RecentHistory(ctx, "r-empty")

	// Assert
	assert.NoError(t, err)
	assert.Empty(t, got)
}
