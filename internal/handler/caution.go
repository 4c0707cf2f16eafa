package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"autopark-notifier/internal/models"

	"go.uber.org/zap"
)

// CautionHandler 处理 /devices/{deviceId}/ts 的变更，停车时长超过阈值时提醒占用者
type CautionHandler struct {
	recipients *RecipientResolver
	dispatcher Dispatcher
	logger     *zap.Logger
}

// NewCautionHandler 创建停车时长提醒处理器
func NewCautionHandler(recipients *RecipientResolver, dispatcher Dispatcher, logger *zap.Logger) *CautionHandler {
	return &CautionHandler{
		recipients: recipients,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Handle 处理一次标记变更，返回每个投递的结果；无需通知或出错时返回 nil，从不返回错误
func (h *CautionHandler) Handle(ctx context.Context, deviceID string, before, after json.RawMessage) (results []bool) {
	logger := invocationLogger(h.logger, "caution", deviceID)
	defer guard(logger, "Error processing caution notification", &results)

	results, err := h.handle(ctx, logger, deviceID, before, after)
	if err != nil {
		logger.Error("Error processing caution notification", zap.Error(err))
		return nil
	}
	return results
}

func (h *CautionHandler) handle(ctx context.Context, logger *zap.Logger, deviceID string, before, after json.RawMessage) ([]bool, error) {
	beforeMarker, err := decodeMarker(before)
	if err != nil {
		return nil, fmt.Errorf("before marker: %w", err)
	}
	afterMarker, err := decodeMarker(after)
	if err != nil {
		return nil, fmt.Errorf("after marker: %w", err)
	}

	if beforeMarker.Equal(afterMarker) {
		logger.Info("No change in caution data")
		return nil, nil
	}

	slots, err := h.recipients.Resolve(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve slots: %w", err)
	}

	var tasks []dispatchTask
	for _, slot := range slots {
		if !slot.Occupied() {
			continue
		}

		// 车位自己的入场时间优先，缺失时回退到标记的旧值
		since := beforeMarker
		if slot.CheckInTime.IsSet() {
			since = slot.CheckInTime
		}
		// null 按 0 参与相减，无法解析的字符串仍为 NaN
		duration := afterMarker.OffsetMillis() - since.OffsetMillis()

		if !(duration > models.CautionThreshold) {
			logger.Debug("Parking duration below threshold",
				zap.String("user_id", slot.UserID),
				zap.Float64("duration_ms", duration),
			)
			continue
		}

		n := models.CautionNotification{
			UserID:         slot.UserID,
			DurationMillis: duration,
			DeviceID:       deviceID,
		}
		tasks = append(tasks, func(ctx context.Context) bool {
			return h.dispatcher.SendCaution(ctx, n)
		})
	}

	results := fanOut(ctx, logger, tasks)
	if len(results) > 0 {
		logger.Info("Caution notifications dispatched",
			zap.Int("recipients", len(results)),
			zap.Int("delivered", countDelivered(results)),
		)
	}
	return results, nil
}

func decodeMarker(raw json.RawMessage) (models.Timestamp, error) {
	var marker models.Timestamp
	if len(bytes.TrimSpace(raw)) == 0 {
		return marker, nil
	}
	if err := json.Unmarshal(raw, &marker); err != nil {
		return models.Timestamp{}, err
	}
	return marker, nil
}
