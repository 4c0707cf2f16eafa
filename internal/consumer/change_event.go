package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	KindWeather = "weather"
	KindCaution = "ts"
)

var nullJSON = json.RawMessage("null")

// ChangeEvent 设备节点的一次写入（写入前/后快照）
type ChangeEvent struct {
	Path     string
	DeviceID string
	Kind     string
	Before   json.RawMessage
	After    json.RawMessage
}

// ChangeHandler 变更处理器（天气 / 停车提醒）
type ChangeHandler interface {
	Handle(ctx context.Context, deviceID string, before, after json.RawMessage) []bool
}

// WeatherPath /devices/{deviceId}/weather
func WeatherPath(deviceID string) string {
	return "/devices/" + deviceID + "/" + KindWeather
}

// CautionPath /devices/{deviceId}/ts
func CautionPath(deviceID string) string {
	return "/devices/" + deviceID + "/" + KindCaution
}

// ParsePath 解析 /devices/{deviceId}/{weather|ts}
func ParsePath(path string) (deviceID, kind string, err error) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 || parts[0] != "devices" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid change path: %s", path)
	}
	switch parts[2] {
	case KindWeather, KindCaution:
		return parts[1], parts[2], nil
	default:
		return "", "", fmt.Errorf("unsupported change path: %s", path)
	}
}

// NewChangeEvent 由路径和快照构造事件；缺失的快照按 null 处理
func NewChangeEvent(path string, before, after json.RawMessage) (ChangeEvent, error) {
	deviceID, kind, err := ParsePath(path)
	if err != nil {
		return ChangeEvent{}, err
	}
	return ChangeEvent{
		Path:     path,
		DeviceID: deviceID,
		Kind:     kind,
		Before:   orNull(before),
		After:    orNull(after),
	}, nil
}

func orNull(raw json.RawMessage) json.RawMessage {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nullJSON
	}
	return raw
}

// Router 按路径把变更分发给对应处理器
type Router struct {
	weather ChangeHandler
	caution ChangeHandler
	logger  *zap.Logger
}

// NewRouter 创建路由
func NewRouter(weather, caution ChangeHandler, logger *zap.Logger) *Router {
	return &Router{
		weather: weather,
		caution: caution,
		logger:  logger,
	}
}

// Route 分发一次变更，返回处理器的投递结果
func (r *Router) Route(ctx context.Context, event ChangeEvent) []bool {
	var h ChangeHandler
	switch event.Kind {
	case KindWeather:
		h = r.weather
	case KindCaution:
		h = r.caution
	}
	if h == nil {
		r.logger.Warn("No handler for change path", zap.String("path", event.Path))
		return nil
	}

	results := h.Handle(ctx, event.DeviceID, event.Before, event.After)

	delivered := 0
	for _, ok := range results {
		if ok {
			delivered++
		}
	}
	r.logger.Debug("Change processed",
		zap.String("path", event.Path),
		zap.String("device_id", event.DeviceID),
		zap.Int("attempted", len(results)),
		zap.Int("delivered", delivered),
	)
	return results
}
