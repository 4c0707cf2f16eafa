package models

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Slot 设备车位分配（/devices/{deviceId}/slots/{key}）
type Slot struct {
	Key         string    `json:"-"`
	UserID      string    `json:"userId,omitempty"`
	CheckInTime Timestamp `json:"checkInTime"`
}

// Occupied 是否有用户占用
func (s Slot) Occupied() bool {
	return s.UserID != ""
}

// UnmarshalJSON userId 不是字符串时视为空闲车位
func (s *Slot) UnmarshalJSON(data []byte) error {
	var aux struct {
		UserID      json.RawMessage `json:"userId"`
		CheckInTime Timestamp       `json:"checkInTime"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*s = Slot{Key: s.Key, CheckInTime: aux.CheckInTime}
	var userID string
	if len(aux.UserID) > 0 && json.Unmarshal(aux.UserID, &userID) == nil {
		s.UserID = userID
	}
	return nil
}

// DecodeSlot 解析单个车位，null 视为空闲车位
func DecodeSlot(key string, raw []byte) (Slot, error) {
	slot := Slot{Key: key}
	if len(raw) == 0 || string(raw) == "null" {
		return slot, nil
	}
	if err := json.Unmarshal(raw, &slot); err != nil {
		return Slot{}, fmt.Errorf("failed to decode slot %q: %w", key, err)
	}
	return slot, nil
}

// SortSlots 按车位键的存储顺序排序
func SortSlots(slots []Slot) {
	sort.SliceStable(slots, func(i, j int) bool {
		return KeyLess(slots[i].Key, slots[j].Key)
	})
}
