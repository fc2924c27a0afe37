package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Manager 负责跟踪后台服务的生命周期。
// 它向每个服务分发一个共享的停机上下文，并在停机时等待服务退出。
type Manager struct {
	wg       sync.WaitGroup
	mu       sync.Mutex
	services map[string]bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager 创建一个新的生命周期管理器。
func NewManager() *Manager {
	m := &Manager{
		services: make(map[string]bool),
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	return m
}

// Go 启动并跟踪一个后台服务。
// 服务函数应当在ctx被取消后尽快返回。
func (m *Manager) Go(name string, fn func(ctx context.Context)) {
	m.mu.Lock()
	if m.services[name] {
		m.mu.Unlock()
		panic(fmt.Sprintf("生命周期管理器: 服务 '%s' 已被注册", name))
	}
	m.services[name] = true
	m.wg.Add(1)
	m.mu.Unlock()

	fmt.Printf("生命周期管理器: 服务 [%s] 已启动。\n", name)

	go func() {
		defer func() {
			m.mu.Lock()
			delete(m.services, name)
			m.mu.Unlock()
			m.wg.Done()
		}()
		fn(m.ctx)
	}()
}

// Shutdown 广播停机信号，并等待所有服务退出，直到指定的超时。
// 返回超时后仍未退出的服务名。
func (m *Manager) Shutdown(timeout time.Duration) []string {
	m.cancel()

	doneChan := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(doneChan)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-doneChan:
		return nil
	case <-timer.C:
		m.mu.Lock()
		defer m.mu.Unlock()
		remaining := make([]string, 0, len(m.services))
		for name := range m.services {
			remaining = append(remaining, name)
		}
		return remaining
	}
}
