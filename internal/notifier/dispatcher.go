package notifier

import (
	"context"
	"errors"
	"fmt"

	"autopark-notifier/internal/models"
	"autopark-notifier/internal/repository"

	"go.uber.org/zap"
)

// Sender 推送投递通道（单次尝试，不重试）
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// Dispatcher 通知分发器：校验、查 token、补全设备名、构建消息并投递
// 所有错误都转换为 false 并记录日志，不向调用方抛出
type Dispatcher struct {
	store  repository.Store
	sender Sender
	logger *zap.Logger
}

// NewDispatcher 创建通知分发器
func NewDispatcher(store repository.Store, sender Sender, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		store:  store,
		sender: sender,
		logger: logger,
	}
}

// SendWeather 向单个用户发送天气通知
func (d *Dispatcher) SendWeather(ctx context.Context, n models.WeatherNotification) (ok bool) {
	logger := d.logger.With(
		zap.String("user_id", n.UserID),
		zap.String("device_id", n.DeviceID),
		zap.String("type", models.NotificationTypeWeather),
	)
	defer recoverDispatch(logger, &ok)

	if !n.Weather.HasValidRain() {
		logger.Error("Invalid weather data",
			zap.Any("weather", n.Weather),
		)
		return false
	}

	token, found := d.resolveToken(ctx, logger, n.UserID)
	if !found {
		return false
	}

	deviceName := d.resolveDeviceName(ctx, logger, n.DeviceID)
	msg := BuildWeatherMessage(token, deviceName, n)

	return d.deliver(ctx, logger, msg)
}

// SendCaution 向单个用户发送停车时长提醒
func (d *Dispatcher) SendCaution(ctx context.Context, n models.CautionNotification) (ok bool) {
	logger := d.logger.With(
		zap.String("user_id", n.UserID),
		zap.String("device_id", n.DeviceID),
		zap.String("type", models.NotificationTypeCaution),
	)
	defer recoverDispatch(logger, &ok)

	token, found := d.resolveToken(ctx, logger, n.UserID)
	if !found {
		return false
	}

	deviceName := d.resolveDeviceName(ctx, logger, n.DeviceID)
	msg := BuildCautionMessage(token, deviceName, n)

	return d.deliver(ctx, logger, msg)
}

// resolveToken 用户不存在或 token 无效时返回 false
func (d *Dispatcher) resolveToken(ctx context.Context, logger *zap.Logger, userID string) (string, bool) {
	user, err := d.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.Error("User not found")
		} else {
			logger.Error("Failed to read user", zap.Error(err))
		}
		return "", false
	}

	token, ok := user.DeliveryToken()
	if !ok {
		logger.Error("No valid FCM token for user")
		return "", false
	}
	return token, true
}

// resolveDeviceName 读取失败或不存在时回退到默认名，不影响投递
func (d *Dispatcher) resolveDeviceName(ctx context.Context, logger *zap.Logger, deviceID string) string {
	fallback := models.StationLabel(deviceID)
	if deviceID == "" {
		return fallback
	}

	name, err := d.store.GetDeviceName(ctx, deviceID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			logger.Warn("Couldn't retrieve device name", zap.Error(err))
		}
		return fallback
	}
	return name
}

func (d *Dispatcher) deliver(ctx context.Context, logger *zap.Logger, msg *Message) bool {
	if err := d.sender.Send(ctx, msg); err != nil {
		logger.Error("Error sending notification", zap.Error(err))
		return false
	}
	logger.Info("Notification sent")
	return true
}

func recoverDispatch(logger *zap.Logger, ok *bool) {
	if r := recover(); r != nil {
		logger.Error("Panic while sending notification", zap.Error(fmt.Errorf("%v", r)))
		*ok = false
	}
}
