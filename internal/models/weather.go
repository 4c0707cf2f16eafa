package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// WeatherEntry 一条天气观测（/devices/{deviceId}/weather/{key}）
type WeatherEntry struct {
	Timestamp   Timestamp `json:"timestamp"`
	Rain        *bool     `json:"rain,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`

	// rain 字段的原始 JSON（rain 不是布尔值时用于相等比较）
	rainRaw string
}

// UnmarshalJSON 宽松解析：rain 非布尔值时 Rain 为 nil，temperature 非数字时忽略
func (w *WeatherEntry) UnmarshalJSON(data []byte) error {
	var aux struct {
		Timestamp   Timestamp       `json:"timestamp"`
		Rain        json.RawMessage `json:"rain"`
		Temperature json.RawMessage `json:"temperature"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*w = WeatherEntry{Timestamp: aux.Timestamp}

	rain := bytes.TrimSpace(aux.Rain)
	switch {
	case bytes.Equal(rain, []byte("true")):
		w.Rain = boolPtr(true)
	case bytes.Equal(rain, []byte("false")):
		w.Rain = boolPtr(false)
	case len(rain) > 0 && !bytes.Equal(rain, []byte("null")):
		w.rainRaw = string(rain)
	}

	var temp float64
	if len(aux.Temperature) > 0 && json.Unmarshal(aux.Temperature, &temp) == nil {
		w.Temperature = &temp
	}
	return nil
}

// HasValidRain rain 字段是否为布尔值
func (w WeatherEntry) HasValidRain() bool {
	return w.Rain != nil
}

// SameRain 两条观测的 rain 字段是否严格相等（均缺失也视为相等）
func (w WeatherEntry) SameRain(o WeatherEntry) bool {
	return w.rainKey() == o.rainKey()
}

func (w WeatherEntry) rainKey() string {
	if w.Rain != nil {
		return strconv.FormatBool(*w.Rain)
	}
	return w.rainRaw
}

// DecodeWeatherEntries 解析天气集合，按存储的键顺序返回
// null 或缺失视为空集合；非对象的集合或条目返回错误
func DecodeWeatherEntries(raw json.RawMessage) ([]WeatherEntry, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var byKey map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &byKey); err != nil {
		return nil, fmt.Errorf("failed to decode weather collection: %w", err)
	}

	entries := make([]WeatherEntry, 0, len(byKey))
	for _, key := range OrderedKeys(byKey) {
		item := bytes.TrimSpace(byKey[key])
		if len(item) == 0 || item[0] != '{' {
			return nil, fmt.Errorf("malformed weather entry %q: %s", key, item)
		}
		var entry WeatherEntry
		if err := json.Unmarshal(item, &entry); err != nil {
			return nil, fmt.Errorf("failed to decode weather entry %q: %w", key, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// LatestWeather 选出归一化时间戳最大的观测；时间戳相等时后遍历到的条目胜出
func LatestWeather(entries []WeatherEntry) (WeatherEntry, bool) {
	if len(entries) == 0 {
		return WeatherEntry{}, false
	}
	latest := entries[0]
	for _, current := range entries {
		if current.Timestamp.Millis() >= latest.Timestamp.Millis() {
			latest = current
		}
	}
	return latest, true
}

// OrderedKeys 按存储遍历顺序排列键：整数键按数值升序在前，其余键按字典序
func OrderedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return KeyLess(keys[i], keys[j])
	})
	return keys
}

// KeyLess 存储键的遍历顺序比较
func KeyLess(a, b string) bool {
	na, aok := arrayIndex(a)
	nb, bok := arrayIndex(b)
	switch {
	case aok && bok:
		return na < nb
	case aok != bok:
		return aok
	default:
		return a < b
	}
}

func arrayIndex(key string) (uint64, bool) {
	if key == "" || (len(key) > 1 && key[0] == '0') {
		return 0, false
	}
	n, err := strconv.ParseUint(key, 10, 32)
	if err != nil {
		return 0, false
	}
	return n, true
}

func boolPtr(b bool) *bool {
	return &b
}
