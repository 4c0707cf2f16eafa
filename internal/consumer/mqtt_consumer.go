package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mqttcommon "autopark-notifier/common/mqtt"

	"go.uber.org/zap"
)

// Subscriber MQTT 订阅接口（*mqttcommon.Client 实现）
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqttcommon.MessageHandler) error
	Unsubscribe(topics ...string) error
	QoS() byte
}

// changePayload MQTT 消息体
type changePayload struct {
	Before json.RawMessage `json:"before"`
	After  json.RawMessage `json:"after"`
}

// MQTTConsumer 订阅 {root}/+/weather 与 {root}/+/ts
type MQTTConsumer struct {
	subscriber Subscriber
	router     *Router
	topicRoot  string
	logger     *zap.Logger

	// Start 的 ctx，取消时传递给处理中的存储读取与投递
	ctx context.Context
}

// NewMQTTConsumer 创建MQTT消费者
func NewMQTTConsumer(subscriber Subscriber, router *Router, topicRoot string, logger *zap.Logger) *MQTTConsumer {
	return &MQTTConsumer{
		subscriber: subscriber,
		router:     router,
		topicRoot:  strings.TrimSuffix(topicRoot, "/"),
		logger:     logger,
	}
}

// Topics 订阅的主题
func (c *MQTTConsumer) Topics() []string {
	return []string{
		c.topicRoot + "/+/" + KindWeather,
		c.topicRoot + "/+/" + KindCaution,
	}
}

// Start 订阅主题并等待 ctx 取消
func (c *MQTTConsumer) Start(ctx context.Context) error {
	c.ctx = ctx
	for _, topic := range c.Topics() {
		if err := c.subscriber.Subscribe(topic, c.subscriber.QoS(), c.handleMessage); err != nil {
			return fmt.Errorf("failed to subscribe to change topic: %w", err)
		}
	}

	c.logger.Info("MQTT consumer started", zap.Strings("topics", c.Topics()))

	<-ctx.Done()
	return nil
}

// Stop 取消订阅
func (c *MQTTConsumer) Stop() {
	if err := c.subscriber.Unsubscribe(c.Topics()...); err != nil {
		c.logger.Error("Failed to unsubscribe", zap.Error(err))
	}
	c.logger.Info("MQTT consumer stopped")
}

// handleMessage 主题格式: {root}/{deviceId}/{weather|ts}
func (c *MQTTConsumer) handleMessage(topic string, payload []byte) error {
	rest := strings.TrimPrefix(topic, c.topicRoot+"/")
	if rest == topic {
		return fmt.Errorf("invalid topic format: %s", topic)
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 2 {
		return fmt.Errorf("invalid topic format: %s", topic)
	}

	var body changePayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return fmt.Errorf("failed to unmarshal change payload: %w", err)
	}

	event, err := NewChangeEvent("/devices/"+parts[0]+"/"+parts[1], body.Before, body.After)
	if err != nil {
		return err
	}
	ctx := c.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	c.router.Route(ctx, event)
	return nil
}
