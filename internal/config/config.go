package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"autopark-notifier/common/config"
)

const (
	StoreBackendRedis    = "redis"
	StoreBackendPostgres = "postgres"

	PushTransportFCM  = "fcm"
	PushTransportMQTT = "mqtt"
)

// Config 通知服务配置
type Config struct {
	ServiceName string

	Database config.DatabaseConfig
	Redis    config.RedisConfig
	MQTT     config.MQTTConfig

	// 设备/车位/用户存储
	Store struct {
		Backend   string // "redis" 或 "postgres"
		KeyPrefix string // Redis 键前缀，如 "autopark:"
	}

	// 推送投递
	Push struct {
		Transport string // "fcm" 或 "mqtt"
		FCM       struct {
			BaseURL     string
			ProjectID   string
			AccessToken string
			Timeout     time.Duration
		}
		MQTTTopicPrefix string // 如 "autopark/notifications"
	}

	// 变更事件来源
	Trigger struct {
		Stream struct {
			Enabled   bool
			Name      string // Redis Stream 名称，如 "autopark:device-changes"
			Group     string
			Consumer  string
			BatchSize int64
			Block     time.Duration
		}
		MQTT struct {
			Enabled   bool
			TopicRoot string // 订阅 {root}/+/weather 与 {root}/+/ts
		}
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.ServiceName = getEnv("SERVICE_NAME", "autopark-notifier")

	cfg.Database.Host = "localhost"
	cfg.Database.Port = 5432
	cfg.Database.User = "postgres"
	cfg.Database.Password = "postgres"
	cfg.Database.Database = "autopark"
	cfg.Database.SSLMode = "disable"
	cfg.Database.LoadFromEnv("DB")

	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.LoadFromEnv("REDIS")

	cfg.MQTT.Broker = "tcp://localhost:1883"
	cfg.MQTT.ClientID = "autopark-notifier"
	cfg.MQTT.QoS = 1
	cfg.MQTT.LoadFromEnv("MQTT")

	cfg.Store.Backend = getEnv("STORE_BACKEND", StoreBackendRedis)
	cfg.Store.KeyPrefix = getEnv("STORE_KEY_PREFIX", "autopark:")

	cfg.Push.Transport = getEnv("PUSH_TRANSPORT", PushTransportFCM)
	cfg.Push.FCM.BaseURL = getEnv("FCM_BASE_URL", "https://fcm.googleapis.com")
	cfg.Push.FCM.ProjectID = getEnv("FCM_PROJECT_ID", "")
	cfg.Push.FCM.AccessToken = getEnv("FCM_ACCESS_TOKEN", "")
	cfg.Push.FCM.Timeout = getEnvDuration("FCM_TIMEOUT", 10*time.Second)
	cfg.Push.MQTTTopicPrefix = getEnv("PUSH_MQTT_TOPIC_PREFIX", "autopark/notifications")

	cfg.Trigger.Stream.Enabled = getEnvBool("TRIGGER_STREAM_ENABLED", true)
	cfg.Trigger.Stream.Name = getEnv("TRIGGER_STREAM", "autopark:device-changes")
	cfg.Trigger.Stream.Group = getEnv("TRIGGER_STREAM_GROUP", "autopark-notifier")
	cfg.Trigger.Stream.Consumer = getEnv("TRIGGER_STREAM_CONSUMER", "")
	cfg.Trigger.Stream.BatchSize = int64(getEnvInt("TRIGGER_STREAM_BATCH_SIZE", 10))
	cfg.Trigger.Stream.Block = getEnvDuration("TRIGGER_STREAM_BLOCK", 5*time.Second)

	cfg.Trigger.MQTT.Enabled = getEnvBool("TRIGGER_MQTT_ENABLED", false)
	cfg.Trigger.MQTT.TopicRoot = getEnv("TRIGGER_MQTT_TOPIC_ROOT", "autopark/devices")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置组合
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case StoreBackendRedis, StoreBackendPostgres:
	default:
		return fmt.Errorf("unknown store backend: %q", c.Store.Backend)
	}

	switch c.Push.Transport {
	case PushTransportFCM:
		if c.Push.FCM.ProjectID == "" {
			return fmt.Errorf("FCM_PROJECT_ID is required when PUSH_TRANSPORT=fcm")
		}
	case PushTransportMQTT:
		if c.Push.MQTTTopicPrefix == "" {
			return fmt.Errorf("PUSH_MQTT_TOPIC_PREFIX is required when PUSH_TRANSPORT=mqtt")
		}
	default:
		return fmt.Errorf("unknown push transport: %q", c.Push.Transport)
	}

	if !c.Trigger.Stream.Enabled && !c.Trigger.MQTT.Enabled {
		return fmt.Errorf("at least one trigger source must be enabled")
	}
	if c.Trigger.Stream.Enabled && c.Trigger.Stream.BatchSize <= 0 {
		return fmt.Errorf("TRIGGER_STREAM_BATCH_SIZE must be positive")
	}
	return nil
}

// NeedsMQTT 是否需要连接 MQTT broker
func (c *Config) NeedsMQTT() bool {
	return c.Trigger.MQTT.Enabled || c.Push.Transport == PushTransportMQTT
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.Atoi(value); err == nil {
			return v
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.ParseBool(value); err == nil {
			return v
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if v, err := time.ParseDuration(value); err == nil {
			return v
		}
	}
	return defaultValue
}
