package model

import "time"

// SMS is one outbound text message.
type SMS struct {
	Phone     string `json:"phone"`
	Body      string `json:"body"`
	Reference string `json:"reference"`
}

// SMSRequested is the event published to the notification topic.
type SMSRequested struct {
	EventID     string    `json:"event_id"`
	SessionID   string    `json:"session_id"`
	SMS         SMS       `json:"sms"`
	RequestedAt time.Time `json:"requested_at"`
}
