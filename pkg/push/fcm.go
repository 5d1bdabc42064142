package push

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"firebase.google.com/go/v4/messaging"
)

// fcmSender is the subset of *messaging.Client used here
type fcmSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMTransport delivers through Firebase Cloud Messaging. The subscription is the
// device registration token.
type FCMTransport struct {
	client fcmSender
}

func NewFCMTransport(client *messaging.Client) *FCMTransport {
	return &FCMTransport{client: client}
}

func (t *FCMTransport) Deliver(ctx context.Context, subscription string, message []byte) error {
	token := strings.TrimSpace(subscription)
	if token == "" {
		return fmt.Errorf("empty FCM registration token")
	}

	var m Message
	if err := json.Unmarshal(message, &m); err != nil {
		return fmt.Errorf("invalid push message: %w", err)
	}

	_, err := t.client.Send(ctx, toFCMMessage(token, m))
	if err != nil {
		if messaging.IsUnregistered(err) || messaging.IsSenderIDMismatch(err) {
			return fmt.Errorf("%w: %v", ErrSubscriptionGone, err)
		}
		return fmt.Errorf("fcm send: %w", err)
	}
	return nil
}

func toFCMMessage(token string, m Message) *messaging.Message {
	data := map[string]string{"notification_id": m.NotificationID}
	if m.ActionURL != "" {
		data["action_url"] = m.ActionURL
	}

	return &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: m.Title,
			Body:  m.Body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{"apns-push-type": "alert"},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Sound: "default"},
			},
		},
	}
}
