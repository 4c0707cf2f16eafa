package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"autopark-notifier/internal/models"

	"go.uber.org/zap"
)

// RedisStore 基于 KV 的存储实现
//
// 键布局（prefix 默认 "autopark:"）:
//
//	{prefix}devices:{deviceId}:slots  HASH  slotKey -> slot JSON
//	{prefix}devices:{deviceId}:name   STRING
//	{prefix}users:{userId}            STRING user JSON
type RedisStore struct {
	kv     KVStore
	prefix string
	logger *zap.Logger
}

// NewRedisStore 创建 Redis 存储
func NewRedisStore(kv KVStore, prefix string, logger *zap.Logger) *RedisStore {
	return &RedisStore{
		kv:     kv,
		prefix: prefix,
		logger: logger,
	}
}

// SlotsKey 车位 hash 键
func (s *RedisStore) SlotsKey(deviceID string) string {
	return fmt.Sprintf("%sdevices:%s:slots", s.prefix, deviceID)
}

// DeviceNameKey 设备名键
func (s *RedisStore) DeviceNameKey(deviceID string) string {
	return fmt.Sprintf("%sdevices:%s:name", s.prefix, deviceID)
}

// UserKey 用户记录键
func (s *RedisStore) UserKey(userID string) string {
	return fmt.Sprintf("%susers:%s", s.prefix, userID)
}

// GetSlots 读取设备全部车位
func (s *RedisStore) GetSlots(ctx context.Context, deviceID string) ([]models.Slot, error) {
	key := s.SlotsKey(deviceID)
	fields, err := s.kv.HGetAll(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read slots for device %s: %w", deviceID, err)
	}

	slots := make([]models.Slot, 0, len(fields))
	for _, slotKey := range models.OrderedKeys(fields) {
		slot, err := models.DecodeSlot(slotKey, []byte(fields[slotKey]))
		if err != nil {
			return nil, fmt.Errorf("device %s: %w", deviceID, err)
		}
		slots = append(slots, slot)
	}

	s.logger.Debug("Loaded device slots",
		zap.String("device_id", deviceID),
		zap.String("key", key),
		zap.Int("slot_count", len(slots)),
	)

	return slots, nil
}

// GetUser 读取用户记录
func (s *RedisStore) GetUser(ctx context.Context, userID string) (*models.User, error) {
	val, err := s.kv.Get(ctx, s.UserKey(userID))
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read user %s: %w", userID, err)
	}

	user := models.User{UserID: userID}
	if err := json.Unmarshal([]byte(val), &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user %s: %w", userID, err)
	}
	return &user, nil
}

// GetDeviceName 读取设备显示名
func (s *RedisStore) GetDeviceName(ctx context.Context, deviceID string) (string, error) {
	name, err := s.kv.Get(ctx, s.DeviceNameKey(deviceID))
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return "", fmt.Errorf("device name %s: %w", deviceID, ErrNotFound)
		}
		return "", fmt.Errorf("failed to read device name %s: %w", deviceID, err)
	}
	if name == "" {
		return "", fmt.Errorf("device name %s: %w", deviceID, ErrNotFound)
	}
	return name, nil
}
