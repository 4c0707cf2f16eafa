package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Publisher MQTT 发布接口（common/mqtt.Client 实现）
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// MQTTSender 把推送消息发布到 {topicPrefix}/{token}，由订阅该主题的客户端接收
type MQTTSender struct {
	publisher   Publisher
	topicPrefix string
	qos         byte
}

// NewMQTTSender 创建 MQTT 投递通道
func NewMQTTSender(publisher Publisher, topicPrefix string, qos byte) *MQTTSender {
	return &MQTTSender{
		publisher:   publisher,
		topicPrefix: strings.TrimSuffix(topicPrefix, "/"),
		qos:         qos,
	}
}

// Send 发送一条消息
func (s *MQTTSender) Send(ctx context.Context, msg *Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.ContainsAny(msg.Token, "+#/") {
		return fmt.Errorf("token cannot be used as an MQTT topic level")
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	return s.publisher.Publish(s.topicPrefix+"/"+msg.Token, s.qos, false, payload)
}
