package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// DefaultFCMBaseURL FCM HTTP v1 API 地址
const DefaultFCMBaseURL = "https://fcm.googleapis.com"

// fcmRequest FCM HTTP v1 messages:send 请求体
type fcmRequest struct {
	Message fcmMessage `json:"message"`
}

type fcmMessage struct {
	Token        string            `json:"token"`
	Notification fcmNotification   `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// fcmResponse 成功响应，name 为消息ID
type fcmResponse struct {
	Name string `json:"name"`
}

// fcmErrorResponse 失败响应
type fcmErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// FCMSender 通过 FCM HTTP v1 API 投递推送
type FCMSender struct {
	httpClient *resty.Client
	projectID  string
	logger     *zap.Logger
}

// NewFCMSender 创建 FCM 投递通道（不重试）
func NewFCMSender(baseURL, projectID, accessToken string, timeout time.Duration, logger *zap.Logger) *FCMSender {
	if baseURL == "" {
		baseURL = DefaultFCMBaseURL
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetAuthToken(accessToken).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &FCMSender{
		httpClient: client,
		projectID:  projectID,
		logger:     logger,
	}
}

// Send 发送一条消息
func (s *FCMSender) Send(ctx context.Context, msg *Message) error {
	request := fcmRequest{
		Message: fcmMessage{
			Token: msg.Token,
			Notification: fcmNotification{
				Title: msg.Title,
				Body:  msg.Body,
			},
			Data: msg.Data,
		},
	}

	var result fcmResponse
	var apiErr fcmErrorResponse
	resp, err := s.httpClient.R().
		SetContext(ctx).
		SetPathParam("project", s.projectID).
		SetBody(request).
		SetResult(&result).
		SetError(&apiErr).
		Post("/v1/projects/{project}/messages:send")
	if err != nil {
		return fmt.Errorf("failed to call FCM API: %w", err)
	}

	if resp.IsError() {
		return fmt.Errorf("FCM API error: %s (status: %d, code: %s)",
			apiErr.Error.Message, resp.StatusCode(), apiErr.Error.Status)
	}

	s.logger.Debug("FCM message accepted",
		zap.String("message_name", result.Name),
	)
	return nil
}
