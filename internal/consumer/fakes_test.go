package consumer

import (
	"context"
	"encoding/json"
	"sync"

	mqttcommon "autopark-notifier/common/mqtt"
)

type handledCall struct {
	DeviceID string
	Before   string
	After    string
}

// fakeHandler 记录收到的变更，返回固定结果
type fakeHandler struct {
	mu      sync.Mutex
	calls   []handledCall
	ctxErrs []error
	results []bool
}

func (f *fakeHandler) Handle(ctx context.Context, deviceID string, before, after json.RawMessage) []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, handledCall{DeviceID: deviceID, Before: string(before), After: string(after)})
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	return f.results
}

func (f *fakeHandler) CtxErrs() []error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]error(nil), f.ctxErrs...)
}

func (f *fakeHandler) Calls() []handledCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]handledCall(nil), f.calls...)
}

// fakeSubscriber 保存订阅的回调，测试中手动投递消息
type fakeSubscriber struct {
	mu           sync.Mutex
	handlers     map[string]mqttcommon.MessageHandler
	unsubscribed []string
	subscribeErr error
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{handlers: make(map[string]mqttcommon.MessageHandler)}
}

func (f *fakeSubscriber) Subscribe(topic string, qos byte, handler mqttcommon.MessageHandler) error {
	if f.subscribeErr != nil {
		return f.subscribeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[topic] = handler
	return nil
}

func (f *fakeSubscriber) Unsubscribe(topics ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubscribed = append(f.unsubscribed, topics...)
	return nil
}

func (f *fakeSubscriber) QoS() byte {
	return 1
}

func (f *fakeSubscriber) handler(topic string) mqttcommon.MessageHandler {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handlers[topic]
}

func (f *fakeSubscriber) subscribed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers)
}
