package push

import (
	"context"
	"errors"
	"sync"

	"github.com/better-rail/server/internal/model"
)

// MockClient 可配置的推送客户端 mock，实现 Client 接口。
// 开发环境和测试里替代真实通道。
type MockClient struct {
	mu    sync.Mutex
	Calls []model.NotificationPayload

	// FailNext 置为 true 时，下一次调用返回 mock 错误并自动复位
	FailNext bool
}

func NewMockClient() *MockClient {
	return &MockClient{
		Calls: make([]model.NotificationPayload, 0),
	}
}

func (m *MockClient) Send(ctx context.Context, payload model.NotificationPayload, route *model.RouteItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, payload)

	if m.FailNext {
		m.FailNext = false
		return errors.New("mock push send failure")
	}
	return nil
}

// Sent 返回已记录调用的副本。
func (m *MockClient) Sent() []model.NotificationPayload {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]model.NotificationPayload, len(m.Calls))
	copy(calls, m.Calls)
	return calls
}
