// Package notify は予約通知の外部エンドポイントへの送信クライアントを提供する。
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// BookingNotification は予約成立時にアーティストへ届ける通知内容。
type BookingNotification struct {
	ArtistEmail     string `json:"artistEmail"`
	ArtistName      string `json:"artistName"`
	CustomerName    string `json:"customerName"`
	CustomerEmail   string `json:"customerEmail"`
	CustomerPhone   string `json:"customerPhone,omitempty"`
	AppointmentDate string `json:"appointmentDate"`
	AppointmentTime string `json:"appointmentTime"`
	Service         string `json:"service"`
	Location        string `json:"location"`
	Notes           string `json:"notes,omitempty"`
}

// Sender は予約通知の送信インターフェース。
type Sender interface {
	SendBookingNotification(ctx context.Context, n *BookingNotification) error
}

// Client は通知エンドポイントへHTTP POSTするSender実装。
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient はClientを生成する。endpointが空の場合、送信は常に成功扱いになる。
func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SendBookingNotification は予約通知をJSONでPOSTする。
// 2xx以外のステータスはエラーとして返す。呼び出し側でベストエフォート扱いとし、
// 予約の成立自体には影響させないこと。
func (c *Client) SendBookingNotification(ctx context.Context, n *BookingNotification) error {
	if c.endpoint == "" {
		return nil
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notification request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("notification endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

// compile-time interface check
var _ Sender = (*Client)(nil)
