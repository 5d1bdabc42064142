package push

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// WebPushTransport delivers to browser push services using VAPID
type WebPushTransport struct {
	publicKey  string
	privateKey string
	subscriber string
	ttl        int
	httpClient webpush.HTTPClient
}

func NewWebPushTransport(publicKey, privateKey, subscriber string, httpClient webpush.HTTPClient) *WebPushTransport {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &WebPushTransport{
		publicKey:  publicKey,
		privateKey: privateKey,
		subscriber: subscriber,
		ttl:        24 * 60 * 60,
		httpClient: httpClient,
	}
}

// Deliver sends message to the subscription, which is the browser's PushSubscription JSON
// ({"endpoint": ..., "keys": {"p256dh": ..., "auth": ...}}).
func (t *WebPushTransport) Deliver(ctx context.Context, subscription string, message []byte) error {
	var sub webpush.Subscription
	if err := json.Unmarshal([]byte(subscription), &sub); err != nil {
		return fmt.Errorf("invalid web push subscription: %w", err)
	}
	if sub.Endpoint == "" {
		return fmt.Errorf("invalid web push subscription: missing endpoint")
	}

	resp, err := webpush.SendNotificationWithContext(ctx, message, &sub, &webpush.Options{
		HTTPClient:      t.httpClient,
		Subscriber:      t.subscriber,
		VAPIDPublicKey:  t.publicKey,
		VAPIDPrivateKey: t.privateKey,
		TTL:             t.ttl,
		Urgency:         webpush.UrgencyNormal,
	})
	if err != nil {
		return fmt.Errorf("web push send: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: push service returned %d", ErrSubscriptionGone, resp.StatusCode)
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("push service returned %d: %s", resp.StatusCode, body)
	}
	return nil
}
