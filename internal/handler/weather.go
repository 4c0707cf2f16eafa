package handler

import (
	"context"
	"encoding/json"
	"fmt"

	"autopark-notifier/internal/models"

	"go.uber.org/zap"
)

// WeatherHandler 处理 /devices/{deviceId}/weather 的变更
type WeatherHandler struct {
	recipients *RecipientResolver
	dispatcher Dispatcher
	logger     *zap.Logger
}

// NewWeatherHandler 创建天气变更处理器
func NewWeatherHandler(recipients *RecipientResolver, dispatcher Dispatcher, logger *zap.Logger) *WeatherHandler {
	return &WeatherHandler{
		recipients: recipients,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Handle 处理一次变更，返回每个投递的结果；无需通知或出错时返回 nil，从不返回错误
func (h *WeatherHandler) Handle(ctx context.Context, deviceID string, before, after json.RawMessage) (results []bool) {
	logger := invocationLogger(h.logger, "weather", deviceID)
	defer guard(logger, "Error processing weather notification", &results)

	results, err := h.handle(ctx, logger, deviceID, before, after)
	if err != nil {
		logger.Error("Error processing weather notification", zap.Error(err))
		return nil
	}
	return results
}

func (h *WeatherHandler) handle(ctx context.Context, logger *zap.Logger, deviceID string, before, after json.RawMessage) ([]bool, error) {
	afterEntries, err := models.DecodeWeatherEntries(after)
	if err != nil {
		return nil, fmt.Errorf("after snapshot: %w", err)
	}

	latestAfter, ok := models.LatestWeather(afterEntries)
	if !ok {
		logger.Info("No weather data found")
		return nil, nil
	}

	beforeEntries, err := models.DecodeWeatherEntries(before)
	if err != nil {
		return nil, fmt.Errorf("before snapshot: %w", err)
	}

	if latestBefore, ok := models.LatestWeather(beforeEntries); !ok {
		logger.Info("Initial weather data, sending notification")
	} else if latestBefore.SameRain(latestAfter) {
		// 只有 rain 状态变化才通知，温度变化不通知
		logger.Info("No change in rain data")
		return nil, nil
	}

	logger.Info("New weather",
		zap.String("timestamp", latestAfter.Timestamp.String()),
		zap.Any("rain", latestAfter.Rain),
		zap.Any("temperature", latestAfter.Temperature),
	)

	slots, err := h.recipients.Resolve(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve slots: %w", err)
	}

	var tasks []dispatchTask
	for _, slot := range slots {
		if !slot.Occupied() {
			continue
		}
		n := models.WeatherNotification{
			UserID:   slot.UserID,
			Weather:  latestAfter,
			DeviceID: deviceID,
		}
		tasks = append(tasks, func(ctx context.Context) bool {
			return h.dispatcher.SendWeather(ctx, n)
		})
	}

	results := fanOut(ctx, logger, tasks)
	logger.Info("Weather notifications dispatched",
		zap.Int("recipients", len(results)),
		zap.Int("delivered", countDelivered(results)),
	)
	return results, nil
}
