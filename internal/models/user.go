package models

import (
	"encoding/json"
	"strings"
)

// User 用户记录（/users/{userId}），这里只关心推送 token
type User struct {
	UserID   string `json:"-"`
	FCMToken string `json:"fcmToken,omitempty"`
}

// UnmarshalJSON fcmToken 不是字符串时视为没有 token
func (u *User) UnmarshalJSON(data []byte) error {
	var aux struct {
		FCMToken json.RawMessage `json:"fcmToken"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*u = User{UserID: u.UserID}
	var token string
	if len(aux.FCMToken) > 0 && json.Unmarshal(aux.FCMToken, &token) == nil {
		u.FCMToken = token
	}
	return nil
}

// DeliveryToken 返回可用的推送 token；空串或纯空白视为不可投递
func (u User) DeliveryToken() (string, bool) {
	if strings.TrimSpace(u.FCMToken) == "" {
		return "", false
	}
	return u.FCMToken, true
}
