package repository

import (
	"context"
	"errors"

	"autopark-notifier/internal/models"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("not found")

// Store 设备/车位/用户的只读存储
type Store interface {
	// GetSlots 一次性读取设备的全部车位（包含空闲车位），按车位键排序
	GetSlots(ctx context.Context, deviceID string) ([]models.Slot, error)
	// GetUser 读取用户记录，不存在时返回 ErrNotFound
	GetUser(ctx context.Context, userID string) (*models.User, error)
	// GetDeviceName 读取设备显示名，不存在或为空时返回 ErrNotFound
	GetDeviceName(ctx context.Context, deviceID string) (string, error)
}
