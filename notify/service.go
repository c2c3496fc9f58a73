// notify/service.go
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chhz0/dispatchr/types"
	"go.uber.org/zap"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository 只负责查找用户
type UserRepository interface {
	Find(ctx context.Context, id string) (types.Recipient, error)
}

// Formatter 只负责格式化消息
type Formatter interface {
	Format(message string) string
}

// Tracker 只负责记录通知事件
type Tracker interface {
	Track(ctx context.Context, event, userID string) error
}

// MessageDispatcher 按渠道分发消息，*core.Dispatcher 满足该接口
type MessageDispatcher interface {
	Dispatch(ctx context.Context, ch types.Channel, msg types.Message) (struct{}, error)
}

// Service 只负责协调，所有协作者由外部注入
type Service struct {
	users     UserRepository
	formatter Formatter
	sender    MessageDispatcher
	tracker   Tracker
}

func NewService(users UserRepository, formatter Formatter, sender MessageDispatcher, tracker Tracker) *Service {
	return &Service{
		users:     users,
		formatter: formatter,
		sender:    sender,
		tracker:   tracker,
	}
}

// Notify 查找用户、格式化并经指定渠道发送；默认走 email
func (s *Service) Notify(ctx context.Context, userID, message string, channels ...types.Channel) (string, error) {
	user, err := s.users.Find(ctx, userID)
	if err != nil {
		return "", err
	}
	if len(channels) == 0 {
		channels = []types.Channel{types.ChannelEmail}
	}

	body := s.formatter.Format(message)
	for _, ch := range channels {
		if _, err := s.sender.Dispatch(ctx, ch, types.Message{Channel: ch, To: user, Body: body}); err != nil {
			return "", err
		}
	}

	if err := s.tracker.Track(ctx, "notification_sent", userID); err != nil {
		return "", fmt.Errorf("track notification: %w", err)
	}
	return "Sent to " + user.Email, nil
}

// MemoryUsers 内存用户仓库
type MemoryUsers struct {
	mu    sync.RWMutex
	users map[string]types.Recipient
}

func NewMemoryUsers(users ...types.Recipient) *MemoryUsers {
	m := &MemoryUsers{users: make(map[string]types.Recipient, len(users))}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *MemoryUsers) Add(u types.Recipient) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

func (m *MemoryUsers) Find(_ context.Context, id string) (types.Recipient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return types.Recipient{}, fmt.Errorf("%w: %q", ErrUserNotFound, id)
	}
	return u, nil
}

// DateFormatter 在消息前加 [YYYY-MM-DD]
type DateFormatter struct {
	Now func() time.Time
}

func (f DateFormatter) Format(message string) string {
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	return fmt.Sprintf("[%s] %s", now().Format(time.DateOnly), message)
}

// LogTracker 把事件写入日志
type LogTracker struct {
	Logger *zap.Logger
}

func (t LogTracker) Track(_ context.Context, event, userID string) error {
	if t.Logger != nil {
		t.Logger.Info("notification tracked", zap.String("event", event), zap.String("user", userID))
	}
	return nil
}

type NopTracker struct{}

func (NopTracker) Track(context.Context, string, string) error { return nil }
