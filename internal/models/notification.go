package models

import "time"

const (
	// NotificationTypeWeather 天气通知的 data.type
	NotificationTypeWeather = "weather_update"
	// NotificationTypeCaution 停车时长提醒的 data.type
	NotificationTypeCaution = "parking_caution"

	// DefaultStationName 没有设备ID时使用的站点名
	DefaultStationName = "Parking Station"

	// CautionThreshold 停车超过该时长（毫秒）才发送提醒：6 小时
	CautionThreshold = float64(6 * time.Hour / time.Millisecond)
)

// WeatherNotification 发送给单个用户的天气通知请求
type WeatherNotification struct {
	UserID   string
	Weather  WeatherEntry
	DeviceID string // 可选
}

// CautionNotification 发送给单个用户的停车时长提醒请求
type CautionNotification struct {
	UserID         string
	DurationMillis float64
	DeviceID       string // 可选
}

// StationLabel 设备名缺失时的默认显示名
func StationLabel(deviceID string) string {
	if deviceID == "" {
		return DefaultStationName
	}
	return "Station " + deviceID
}
