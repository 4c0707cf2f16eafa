package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	// 清除环境变量
	os.Clearenv()
	t.Setenv("FCM_PROJECT_ID", "autopark-prod")

	cfg, err := Load()
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	assert.Equal(t, "autopark-notifier", cfg.ServiceName)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "autopark", cfg.Database.Database)
	assert.Equal(t, "disable", cfg.Database.SSLMode)

	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 0, cfg.Redis.DB)

	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)
	assert.Equal(t, byte(1), cfg.MQTT.QoS)

	assert.Equal(t, "redis", cfg.Store.Backend)
	assert.Equal(t, "autopark:", cfg.Store.KeyPrefix)

	assert.Equal(t, "fcm", cfg.Push.Transport)
	assert.Equal(t, "https://fcm.googleapis.com", cfg.Push.FCM.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Push.FCM.Timeout)
	assert.Equal(t, "autopark/notifications", cfg.Push.MQTTTopicPrefix)

	assert.True(t, cfg.Trigger.Stream.Enabled)
	assert.Equal(t, "autopark:device-changes", cfg.Trigger.Stream.Name)
	assert.Equal(t, "autopark-notifier", cfg.Trigger.Stream.Group)
	assert.Equal(t, "", cfg.Trigger.Stream.Consumer)
	assert.Equal(t, int64(10), cfg.Trigger.Stream.BatchSize)
	assert.Equal(t, 5*time.Second, cfg.Trigger.Stream.Block)
	assert.False(t, cfg.Trigger.MQTT.Enabled)
	assert.Equal(t, "autopark/devices", cfg.Trigger.MQTT.TopicRoot)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	assert.False(t, cfg.NeedsMQTT())
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	os.Clearenv()
	t.Setenv("DB_HOST", "test-host")
	t.Setenv("DB_NAME", "test-db")
	t.Setenv("REDIS_ADDR", "test-redis:6380")
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("PUSH_TRANSPORT", "mqtt")
	t.Setenv("TRIGGER_STREAM_ENABLED", "false")
	t.Setenv("TRIGGER_MQTT_ENABLED", "true")
	t.Setenv("TRIGGER_STREAM_BLOCK", "250ms")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "console")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, "test-db", cfg.Database.Database)
	assert.Equal(t, "test-redis:6380", cfg.Redis.Addr)
	assert.Equal(t, "postgres", cfg.Store.Backend)
	assert.Equal(t, "mqtt", cfg.Push.Transport)
	assert.False(t, cfg.Trigger.Stream.Enabled)
	assert.True(t, cfg.Trigger.MQTT.Enabled)
	assert.Equal(t, 250*time.Millisecond, cfg.Trigger.Stream.Block)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.True(t, cfg.NeedsMQTT())
}

func TestLoad_Invalid(t *testing.T) {
	os.Clearenv()

	// FCM 需要 project id
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FCM_PROJECT_ID")

	t.Setenv("FCM_PROJECT_ID", "autopark-prod")
	t.Setenv("STORE_BACKEND", "firebase")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store backend")

	t.Setenv("STORE_BACKEND", "redis")
	t.Setenv("PUSH_TRANSPORT", "sms")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown push transport")

	t.Setenv("PUSH_TRANSPORT", "fcm")
	t.Setenv("TRIGGER_STREAM_ENABLED", "false")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trigger source")
}

func TestGetEnvHelpers(t *testing.T) {
	os.Clearenv()
	assert.Equal(t, "default-value", getEnv("TEST_KEY", "default-value"))
	assert.Equal(t, 7, getEnvInt("TEST_INT", 7))
	assert.True(t, getEnvBool("TEST_BOOL", true))
	assert.Equal(t, time.Second, getEnvDuration("TEST_DURATION", time.Second))

	t.Setenv("TEST_KEY", "env-value")
	t.Setenv("TEST_INT", "x")
	t.Setenv("TEST_BOOL", "0")
	t.Setenv("TEST_DURATION", "2m")
	assert.Equal(t, "env-value", getEnv("TEST_KEY", "default-value"))
	assert.Equal(t, 7, getEnvInt("TEST_INT", 7))
	assert.False(t, getEnvBool("TEST_BOOL", true))
	assert.Equal(t, 2*time.Minute, getEnvDuration("TEST_DURATION", time.Second))
}
