package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

type timestampKind uint8

const (
	timestampNull timestampKind = iota
	timestampNumber
	timestampString
	timestampOther
)

// Timestamp 存储中的时间标量：可能是数字（毫秒）、日期字符串、null 或其他 JSON 值
// 原始值保持不变，只有在比较大小或计算时长时才通过 Millis 归一化
type Timestamp struct {
	kind timestampKind
	num  float64
	str  string
	raw  []byte
}

// NumberTimestamp 数字时间戳（毫秒）
func NumberTimestamp(ms float64) Timestamp {
	return Timestamp{kind: timestampNumber, num: ms}
}

// StringTimestamp 字符串时间戳（如 RFC3339）
func StringTimestamp(s string) Timestamp {
	return Timestamp{kind: timestampString, str: s}
}

// UnmarshalJSON 接受任意 JSON 标量，不会因类型不符而失败
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*t = Timestamp{}
		return nil
	}

	switch c := trimmed[0]; {
	case c == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*t = StringTimestamp(s)
	case c == '-' || (c >= '0' && c <= '9'):
		var f float64
		if err := json.Unmarshal(trimmed, &f); err != nil {
			return err
		}
		*t = NumberTimestamp(f)
	default:
		*t = Timestamp{kind: timestampOther, raw: append([]byte(nil), trimmed...)}
	}
	return nil
}

// MarshalJSON 按原始类型输出
func (t Timestamp) MarshalJSON() ([]byte, error) {
	switch t.kind {
	case timestampNumber:
		return []byte(formatNumber(t.num)), nil
	case timestampString:
		return json.Marshal(t.str)
	case timestampOther:
		return t.raw, nil
	default:
		return []byte("null"), nil
	}
}

// IsNull 值为 null 或不存在
func (t Timestamp) IsNull() bool {
	return t.kind == timestampNull
}

// IsSet 值是否为"真值"：非零数字、非空字符串、除 false 以外的其他值
func (t Timestamp) IsSet() bool {
	switch t.kind {
	case timestampNumber:
		return t.num != 0
	case timestampString:
		return t.str != ""
	case timestampOther:
		return !bytes.Equal(t.raw, []byte("false"))
	default:
		return false
	}
}

// Equal 严格相等：类型与值都相同（1000 与 "1000" 不相等，null 与 null 相等）
func (t Timestamp) Equal(o Timestamp) bool {
	if t.kind != o.kind {
		return false
	}
	switch t.kind {
	case timestampNumber:
		return t.num == o.num
	case timestampString:
		return t.str == o.str
	case timestampOther:
		return bytes.Equal(t.raw, o.raw)
	default:
		return true
	}
}

// Millis 归一化为 Unix 毫秒：数字原样返回，字符串按日期解析，
// 其他情况（null、无法解析）返回 NaN，NaN 参与的比较结果恒为 false
func (t Timestamp) Millis() float64 {
	switch t.kind {
	case timestampNumber:
		return t.num
	case timestampString:
		return ParseTimeMillis(t.str)
	default:
		return math.NaN()
	}
}

// OffsetMillis 参与时长相减时的值：null 视为 0，其余同 Millis
func (t Timestamp) OffsetMillis() float64 {
	if t.IsNull() {
		return 0
	}
	return t.Millis()
}

// String 原始值的文本形式（null 返回空串）
func (t Timestamp) String() string {
	switch t.kind {
	case timestampNumber:
		return formatNumber(t.num)
	case timestampString:
		return t.str
	case timestampOther:
		return string(t.raw)
	default:
		return ""
	}
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
	"2006-01",
	"2006",
	time.RFC1123,
	time.RFC1123Z,
	time.ANSIC,
	"Mon Jan 02 2006 15:04:05 GMT-0700",
}

// ParseTimeMillis 解析日期字符串为 Unix 毫秒；无时区的时间按 UTC 处理，失败返回 NaN
func ParseTimeMillis(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	if i := strings.Index(s, " ("); i > 0 {
		// "Mon Jan 02 2006 15:04:05 GMT+0700 (Indochina Time)"
		s = s[:i]
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return float64(parsed.UnixMilli())
		}
	}
	return math.NaN()
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
