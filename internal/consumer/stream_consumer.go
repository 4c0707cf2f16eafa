package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	rediscommon "autopark-notifier/common/redis"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Stream 消息字段
const (
	FieldPath   = "path"
	FieldBefore = "before"
	FieldAfter  = "after"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// StreamOptions 消费者组参数
type StreamOptions struct {
	Stream    string
	Group     string
	Consumer  string // 为空时生成 "autopark-notifier-<uuid>"
	BatchSize int64
	Block     time.Duration
}

// StreamConsumer Redis Streams 变更事件消费者
type StreamConsumer struct {
	redisClient *redis.Client
	router      *Router
	opts        StreamOptions
	logger      *zap.Logger
}

// NewStreamConsumer 创建 Streams 消费者
func NewStreamConsumer(redisClient *redis.Client, router *Router, opts StreamOptions, logger *zap.Logger) *StreamConsumer {
	if opts.Consumer == "" {
		opts.Consumer = "autopark-notifier-" + uuid.NewString()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	return &StreamConsumer{
		redisClient: redisClient,
		router:      router,
		opts:        opts,
		logger:      logger,
	}
}

// ConsumerName 实际使用的消费者名
func (c *StreamConsumer) ConsumerName() string {
	return c.opts.Consumer
}

// Start 启动消费循环，直到 ctx 取消
func (c *StreamConsumer) Start(ctx context.Context) error {
	if err := rediscommon.CreateConsumerGroup(ctx, c.redisClient, c.opts.Stream, c.opts.Group); err != nil {
		return err
	}

	c.logger.Info("Stream consumer started",
		zap.String("stream", c.opts.Stream),
		zap.String("consumer_group", c.opts.Group),
		zap.String("consumer_name", c.opts.Consumer),
	)

	backoff := initialBackoff
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if _, err := c.ConsumeOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("Failed to consume stream",
				zap.String("stream", c.opts.Stream),
				zap.Duration("backoff", backoff),
				zap.Error(err),
			)

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
			}
			continue
		}
		backoff = initialBackoff
	}
}

// ConsumeOnce 读取一批消息并逐条处理，返回处理条数
// 每条消息处理完都会 XACK，无论是否产生通知
func (c *StreamConsumer) ConsumeOnce(ctx context.Context) (int, error) {
	messages, err := rediscommon.ReadFromStream(
		ctx,
		c.redisClient,
		c.opts.Stream,
		c.opts.Group,
		c.opts.Consumer,
		c.opts.BatchSize,
		c.opts.Block,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to read from stream %s: %w", c.opts.Stream, err)
	}

	for _, msg := range messages {
		if err := c.processMessage(ctx, msg); err != nil {
			c.logger.Error("Failed to process message",
				zap.String("stream", msg.Stream),
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
		}
		if err := rediscommon.AckMessages(ctx, c.redisClient, c.opts.Stream, c.opts.Group, msg.ID); err != nil {
			c.logger.Error("Failed to ack message",
				zap.String("stream", msg.Stream),
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
		}
	}
	return len(messages), nil
}

func (c *StreamConsumer) processMessage(ctx context.Context, msg rediscommon.StreamMessage) error {
	path, ok := msg.String(FieldPath)
	if !ok {
		return errors.New("missing path field")
	}
	before, _ := msg.String(FieldBefore)
	after, _ := msg.String(FieldAfter)

	event, err := NewChangeEvent(path, json.RawMessage(before), json.RawMessage(after))
	if err != nil {
		return err
	}
	c.router.Route(ctx, event)
	return nil
}

// PublishChange 把一次变更写入 stream（供写入方与测试使用）
func PublishChange(ctx context.Context, client *redis.Client, stream string, event ChangeEvent) (string, error) {
	return rediscommon.PublishToStream(ctx, client, stream, map[string]interface{}{
		FieldPath:   event.Path,
		FieldBefore: orNull(event.Before),
		FieldAfter:  orNull(event.After),
	})
}
