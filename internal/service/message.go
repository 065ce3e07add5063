package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Bondebut/tripchat/internal/domain"
	"github.com/Bondebut/tripchat/internal/repository"
)

// RetryPolicy 描述存储调用的有界重试策略。
// 应用在存储客户端边界上，消息管道把 Append 视为单次原子操作。
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.Delay < 0 {
		p.Delay = 0
	}
	return p
}

// MessageService 是消息存储的客户端：追加消息并读取最近历史。
// 追加成功后返回存储层的规范记录 (服务端分配的 ID 与时间戳)，
// 广播必须使用该返回值而不是客户端提交的内容。
type MessageService struct {
	msgRepo      repository.MessageRepository
	stateRepo    repository.StateRepository
	historyLimit int
	retry        RetryPolicy
}

// NewMessageService 创建 MessageService 实例。
// stateRepo 为可选的历史缓存，传 nil 时所有历史读取都回源数据库。
func NewMessageService(msgRepo repository.MessageRepository, stateRepo repository.StateRepository, historyLimit int, retry RetryPolicy) *MessageService {
	if msgRepo == nil {
		panic("MessageRepository cannot be nil for MessageService")
	}
	if historyLimit <= 0 {
		historyLimit = 50
	}
	return &MessageService{
		msgRepo:      msgRepo,
		stateRepo:    stateRepo,
		historyLimit: historyLimit,
		retry:        retry.normalized(),
	}
}

// HistoryLimit 返回配置的历史下发条数。
func (s *MessageService) HistoryLimit() int {
	return s.historyLimit
}

// Append 持久化一条消息并返回提交后的规范记录。
// 存储暂时不可用时按重试策略重试；全部失败后返回 ErrPersistenceFailed，
// 此时消息丢弃，不做缓冲。
func (s *MessageService) Append(ctx context.Context, roomID string, sender Identity, content string) (*domain.Message, error) {
	content = strings.TrimSpace(content)
	if roomID == "" || sender.UserID == "" || content == "" {
		return nil, ErrInvalidRequest
	}

	msg := &domain.Message{
		ID:         uuid.NewString(),
		RoomID:     roomID,
		SenderID:   sender.UserID,
		Content:    content,
		SentAt:     time.Now().UTC(),
		SenderName: sender.Username,
	}
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "sender_id": sender.UserID, "message_id": msg.ID})

	var lastErr error
	for attempt := 1; attempt <= s.retry.MaxAttempts; attempt++ {
		lastErr = s.msgRepo.Append(ctx, msg)
		if lastErr == nil {
			break
		}
		logCtx.WithError(lastErr).Warnf("Message append attempt %d/%d failed", attempt, s.retry.MaxAttempts)
		if attempt < s.retry.MaxAttempts && s.retry.Delay > 0 {
			select {
			case <-time.After(s.retry.Delay):
			case <-ctx.Done():
				return nil, ErrPersistenceFailed
			}
		}
	}
	if lastErr != nil {
		logCtx.WithError(lastErr).Error("Message append failed after all attempts")
		return nil, ErrPersistenceFailed
	}

	// 缓存写入是尽力而为，失败只记日志，不影响已提交的消息
	if s.stateRepo != nil {
		if err := s.stateRepo.PushMessage(ctx, roomID, *msg); err != nil {
			logCtx.WithError(err).Warn("Failed to push committed message to history cache")
		}
	}

	logCtx.Debug("Message committed")
	return msg, nil
}

// RecentHistory 返回房间最近的消息，按时间正序。
// 优先读缓存；缓存不足或出错时回源数据库并重建缓存。
func (s *MessageService) RecentHistory(ctx context.Context, roomID string) ([]domain.Message, error) {
	logCtx := logrus.WithField("room_id", roomID)

	if s.stateRepo != nil {
		cached, err := s.stateRepo.RecentMessages(ctx, roomID, s.historyLimit)
		if err != nil {
			logCtx.WithError(err).Warn("History cache read failed, falling back to database")
		} else if len(cached) >= s.historyLimit {
			// 缓存是最新在前，反转为时间正序
			for i, j := 0, len(cached)-1; i < j; i, j = i+1, j-1 {
				cached[i], cached[j] = cached[j], cached[i]
			}
			return cached, nil
		}
	}

	msgs, err := s.msgRepo.RecentByRoom(ctx, roomID, s.historyLimit)
	if err != nil {
		logCtx.WithError(err).Error("Failed to load recent history from database")
		return nil, ErrPersistenceFailed
	}

	if s.stateRepo != nil && len(msgs) > 0 {
		if err := s.stateRepo.PrimeHistory(ctx, roomID, msgs); err != nil {
			logCtx.WithError(err).Warn("Failed to prime history cache")
		}
	}
	return msgs, nil
}
