package handler

import (
	"context"
	"sort"
	"sync"

	"autopark-notifier/internal/models"
)

// fakeSlots 仅用于单元测试（固定车位列表或读取错误）
type fakeSlots struct {
	slots []models.Slot
	err   error
	calls int
	mu    sync.Mutex
}

func (f *fakeSlots) GetSlots(ctx context.Context, deviceID string) ([]models.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.slots, nil
}

// fakeDispatcher 记录所有分发请求；failFor 中的用户返回 false，panicFor 中的用户 panic
type fakeDispatcher struct {
	mu       sync.Mutex
	weather  []models.WeatherNotification
	caution  []models.CautionNotification
	failFor  map[string]bool
	panicFor map[string]bool
}

func (f *fakeDispatcher) SendWeather(ctx context.Context, n models.WeatherNotification) bool {
	f.mu.Lock()
	f.weather = append(f.weather, n)
	f.mu.Unlock()
	if f.panicFor[n.UserID] {
		panic("boom")
	}
	return !f.failFor[n.UserID]
}

func (f *fakeDispatcher) SendCaution(ctx context.Context, n models.CautionNotification) bool {
	f.mu.Lock()
	f.caution = append(f.caution, n)
	f.mu.Unlock()
	if f.panicFor[n.UserID] {
		panic("boom")
	}
	return !f.failFor[n.UserID]
}

func (f *fakeDispatcher) weatherUsers() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	users := make([]string, 0, len(f.weather))
	for _, n := range f.weather {
		users = append(users, n.UserID)
	}
	sort.Strings(users)
	return users
}

func (f *fakeDispatcher) cautionUsers() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	users := make([]string, 0, len(f.caution))
	for _, n := range f.caution {
		users = append(users, n.UserID)
	}
	sort.Strings(users)
	return users
}
