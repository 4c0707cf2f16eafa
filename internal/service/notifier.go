package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"autopark-notifier/common/database"
	mqttcommon "autopark-notifier/common/mqtt"
	rediscommon "autopark-notifier/common/redis"
	"autopark-notifier/internal/config"
	"autopark-notifier/internal/consumer"
	"autopark-notifier/internal/handler"
	"autopark-notifier/internal/notifier"
	"autopark-notifier/internal/repository"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// mqttConn MQTT 连接（订阅变更 + 发布推送）
type mqttConn interface {
	consumer.Subscriber
	notifier.Publisher
	Disconnect()
}

// NotifierService 通知服务（整合各层）
type NotifierService struct {
	config      *config.Config
	db          *sql.DB
	redisClient *redis.Client
	mqttConn    mqttConn
	logger      *zap.Logger

	// 各层组件
	store          repository.Store
	dispatcher     *notifier.Dispatcher
	router         *consumer.Router
	streamConsumer *consumer.StreamConsumer
	mqttConsumer   *consumer.MQTTConsumer
}

// NewNotifierService 按配置连接外部依赖并创建服务
func NewNotifierService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*NotifierService, error) {
	var (
		redisClient *redis.Client
		db          *sql.DB
		conn        mqttConn
		err         error
	)

	closeAll := func() {
		if conn != nil {
			conn.Disconnect()
		}
		if db != nil {
			_ = db.Close()
		}
		if redisClient != nil {
			_ = redisClient.Close()
		}
	}

	// 1. 连接 Redis（Redis 存储或 Streams 触发时需要）
	if cfg.Store.Backend == config.StoreBackendRedis || cfg.Trigger.Stream.Enabled {
		redisClient, err = rediscommon.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			return nil, err
		}
	}

	// 2. 连接数据库
	if cfg.Store.Backend == config.StoreBackendPostgres {
		db, err = database.NewPostgresDB(ctx, &cfg.Database)
		if err != nil {
			closeAll()
			return nil, err
		}
	}

	// 3. 连接 MQTT
	if cfg.NeedsMQTT() {
		client, err := mqttcommon.NewClient(&cfg.MQTT, logger)
		if err != nil {
			closeAll()
			return nil, err
		}
		conn = client
	}

	s, err := newNotifierService(cfg, logger, redisClient, db, conn)
	if err != nil {
		closeAll()
		return nil, err
	}
	return s, nil
}

func newNotifierService(cfg *config.Config, logger *zap.Logger, redisClient *redis.Client, db *sql.DB, conn mqttConn) (*NotifierService, error) {
	// 1. Repository 层
	store, err := newStore(cfg, redisClient, db, logger)
	if err != nil {
		return nil, err
	}

	// 2. 投递层
	sender, err := newSender(cfg, conn, logger)
	if err != nil {
		return nil, err
	}
	dispatcher := notifier.NewDispatcher(store, sender, logger)

	// 3. 处理器与路由
	recipients := handler.NewRecipientResolver(store)
	router := consumer.NewRouter(
		handler.NewWeatherHandler(recipients, dispatcher, logger),
		handler.NewCautionHandler(recipients, dispatcher, logger),
		logger,
	)

	s := &NotifierService{
		config:      cfg,
		db:          db,
		redisClient: redisClient,
		mqttConn:    conn,
		logger:      logger,
		store:       store,
		dispatcher:  dispatcher,
		router:      router,
	}

	// 4. 变更来源
	if cfg.Trigger.Stream.Enabled {
		if redisClient == nil {
			return nil, fmt.Errorf("stream trigger requires a redis client")
		}
		s.streamConsumer = consumer.NewStreamConsumer(redisClient, router, consumer.StreamOptions{
			Stream:    cfg.Trigger.Stream.Name,
			Group:     cfg.Trigger.Stream.Group,
			Consumer:  cfg.Trigger.Stream.Consumer,
			BatchSize: cfg.Trigger.Stream.BatchSize,
			Block:     cfg.Trigger.Stream.Block,
		}, logger)
	}
	if cfg.Trigger.MQTT.Enabled {
		if conn == nil {
			return nil, fmt.Errorf("mqtt trigger requires an mqtt connection")
		}
		s.mqttConsumer = consumer.NewMQTTConsumer(conn, router, cfg.Trigger.MQTT.TopicRoot, logger)
	}

	return s, nil
}

func newStore(cfg *config.Config, redisClient *redis.Client, db *sql.DB, logger *zap.Logger) (repository.Store, error) {
	switch cfg.Store.Backend {
	case config.StoreBackendRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("redis store requires a redis client")
		}
		return repository.NewRedisStore(repository.NewRedisKVStore(redisClient), cfg.Store.KeyPrefix, logger), nil
	case config.StoreBackendPostgres:
		if db == nil {
			return nil, fmt.Errorf("postgres store requires a database connection")
		}
		return repository.NewPostgresStore(db, logger), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %q", cfg.Store.Backend)
	}
}

func newSender(cfg *config.Config, publisher notifier.Publisher, logger *zap.Logger) (notifier.Sender, error) {
	switch cfg.Push.Transport {
	case config.PushTransportFCM:
		fcm := cfg.Push.FCM
		return notifier.NewFCMSender(fcm.BaseURL, fcm.ProjectID, fcm.AccessToken, fcm.Timeout, logger), nil
	case config.PushTransportMQTT:
		if publisher == nil {
			return nil, fmt.Errorf("mqtt transport requires an mqtt connection")
		}
		return notifier.NewMQTTSender(publisher, cfg.Push.MQTTTopicPrefix, cfg.MQTT.QoS), nil
	default:
		return nil, fmt.Errorf("unknown push transport: %q", cfg.Push.Transport)
	}
}

// Start 启动所有变更来源，阻塞到 ctx 取消或任一来源出错
func (s *NotifierService) Start(ctx context.Context) error {
	s.logger.Info("Starting notifier service",
		zap.String("store_backend", s.config.Store.Backend),
		zap.String("push_transport", s.config.Push.Transport),
		zap.Bool("stream_trigger", s.streamConsumer != nil),
		zap.Bool("mqtt_trigger", s.mqttConsumer != nil),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	run := func(name string, start func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := start(ctx); err != nil {
				once.Do(func() {
					firstErr = fmt.Errorf("failed to start %s: %w", name, err)
					cancel()
				})
			}
		}()
	}

	if s.streamConsumer != nil {
		run("stream consumer", s.streamConsumer.Start)
	}
	if s.mqttConsumer != nil {
		run("mqtt consumer", s.mqttConsumer.Start)
	}

	wg.Wait()
	return firstErr
}

// Stop 停止服务并关闭连接
func (s *NotifierService) Stop() error {
	s.logger.Info("Stopping notifier service")

	if s.mqttConsumer != nil {
		s.mqttConsumer.Stop()
	}
	if s.mqttConn != nil {
		s.mqttConn.Disconnect()
	}

	// 关闭数据库连接
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database", zap.Error(err))
		}
	}

	// 关闭 Redis 连接
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.logger.Error("Failed to close redis", zap.Error(err))
		}
	}

	return nil
}
