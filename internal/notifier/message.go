package notifier

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"autopark-notifier/internal/models"
)

// Message 一条待投递的推送消息
type Message struct {
	Token string            `json:"token"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data"`
}

// BuildWeatherMessage 构建天气通知；调用方保证 Weather.Rain 为布尔值
func BuildWeatherMessage(token, deviceName string, n models.WeatherNotification) *Message {
	rain := *n.Weather.Rain

	weatherDesc := "Weather is clear now."
	if rain {
		weatherDesc = "It's raining outside!"
	}

	// 0°C 不写入正文，但 data.temperature 仍为 "0"
	tempInfo := ""
	temperature := ""
	if t := n.Weather.Temperature; t != nil {
		temperature = formatNumber(*t)
		if *t != 0 {
			tempInfo = fmt.Sprintf(" Temperature: %s°C", temperature)
		}
	}

	return &Message{
		Token: token,
		Title: "Weather Update for " + deviceName,
		Body:  weatherDesc + tempInfo,
		Data: map[string]string{
			"deviceId":    n.DeviceID,
			"rain":        strconv.FormatBool(rain),
			"temperature": temperature,
			"timestamp":   n.Weather.Timestamp.String(),
			"type":        models.NotificationTypeWeather,
		},
	}
}

// BuildCautionMessage 构建停车时长提醒
func BuildCautionMessage(token, deviceName string, n models.CautionNotification) *Message {
	elapsed := FormatElapsed(n.DurationMillis)

	return &Message{
		Token: token,
		Title: "Parking Caution at " + deviceName,
		Body:  fmt.Sprintf("Your vehicle has been parked for %s since check-in.", elapsed),
		Data: map[string]string{
			"deviceId":     n.DeviceID,
			"duration":     formatNumber(math.Trunc(n.DurationMillis)),
			"durationText": elapsed,
			"type":         models.NotificationTypeCaution,
		},
	}
}

// FormatElapsed 毫秒时长格式化为 "6h 30m"
func FormatElapsed(ms float64) string {
	d := time.Duration(ms) * time.Millisecond
	hours := int64(d / time.Hour)
	minutes := int64((d % time.Hour) / time.Minute)
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
