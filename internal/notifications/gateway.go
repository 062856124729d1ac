package notifications

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"medibook/pkg/client"
	"medibook/pkg/model"
)

const (
	GatewayMessagesPath = "/messages"
	HeaderAPIKey        = "X-API-Key"
)

type gatewayRequest struct {
	To        string `json:"to"`
	From      string `json:"from"`
	Message   string `json:"message"`
	Reference string `json:"reference"`
}

// GatewayError is a non-2xx answer from the SMS gateway.
type GatewayError struct {
	StatusCode int
	Message    string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("sms gateway returned %d: %s", e.StatusCode, e.Message)
}

// Temporary reports whether the same request may succeed later.
func (e *GatewayError) Temporary() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

type GatewaySender struct {
	client   *client.HttpClient
	senderID string
}

func NewGatewaySender(baseURL, apiKey, senderID string, timeout time.Duration) *GatewaySender {
	c := client.NewHttpClient(baseURL)
	c.HTTPClient.Timeout = timeout
	c.Headers = map[string]string{HeaderAPIKey: apiKey}
	return &GatewaySender{client: c, senderID: senderID}
}

func (s *GatewaySender) Send(ctx context.Context, sms model.SMS) (model.DeliveryStatus, error) {
	resp, err := s.client.POST(ctx, GatewayMessagesPath, gatewayRequest{
		To:        sms.Phone,
		From:      s.senderID,
		Message:   sms.Body,
		Reference: sms.Reference,
	})
	if err != nil {
		return model.DeliveryFailed, fmt.Errorf("sms gateway request failed: %w", err)
	}
	if !resp.IsSuccess() {
		return model.DeliveryFailed, &GatewayError{
			StatusCode: resp.StatusCode,
			Message:    client.GetErrorMessage(resp),
		}
	}
	return model.DeliverySent, nil
}
