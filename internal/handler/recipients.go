package handler

import (
	"context"

	"autopark-notifier/internal/models"
)

// SlotReader 车位读取接口（repository.Store 实现）
type SlotReader interface {
	GetSlots(ctx context.Context, deviceID string) ([]models.Slot, error)
}

// RecipientResolver 解析设备当前的车位占用者
type RecipientResolver struct {
	slots SlotReader
}

// NewRecipientResolver 创建占用者解析器
func NewRecipientResolver(slots SlotReader) *RecipientResolver {
	return &RecipientResolver{slots: slots}
}

// Resolve 一次性读取设备全部车位（含空闲车位，由调用方过滤）；读取错误直接返回
func (r *RecipientResolver) Resolve(ctx context.Context, deviceID string) ([]models.Slot, error) {
	return r.slots.GetSlots(ctx, deviceID)
}
