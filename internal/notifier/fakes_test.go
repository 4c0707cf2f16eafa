package notifier

import (
	"context"
	"fmt"
	"sync"

	"autopark-notifier/internal/models"
	"autopark-notifier/internal/repository"
)

// fakeStore 仅用于单元测试（内存存储，可注入错误）
type fakeStore struct {
	users       map[string]*models.User
	names       map[string]string
	userErr     error
	nameErr     error
	nameLookups int
	userLookups int
	mu          sync.Mutex
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users: make(map[string]*models.User),
		names: make(map[string]string),
	}
}

func (f *fakeStore) GetSlots(ctx context.Context, deviceID string) ([]models.Slot, error) {
	return nil, nil
}

func (f *fakeStore) GetUser(ctx context.Context, userID string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userLookups++
	if f.userErr != nil {
		return nil, f.userErr
	}
	u, ok := f.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, repository.ErrNotFound)
	}
	return u, nil
}

func (f *fakeStore) GetDeviceName(ctx context.Context, deviceID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nameLookups++
	if f.nameErr != nil {
		return "", f.nameErr
	}
	name, ok := f.names[deviceID]
	if !ok {
		return "", repository.ErrNotFound
	}
	return name, nil
}

// fakeSender 记录所有投递的消息
type fakeSender struct {
	mu   sync.Mutex
	sent []*Message
	err  error
}

func (f *fakeSender) Send(ctx context.Context, msg *Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

// fakePublisher 记录 MQTT 发布
type fakePublisher struct {
	topic   string
	qos     byte
	payload []byte
	err     error
}

func (f *fakePublisher) Publish(topic string, qos byte, retained bool, payload []byte) error {
	f.topic = topic
	f.qos = qos
	f.payload = payload
	return f.err
}

func boolPtr(b bool) *bool {
	return &b
}

func float64Ptr(f float64) *float64 {
	return &f
}
