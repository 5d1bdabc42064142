package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/anonto42/notification-engine/internal/models"
	"github.com/anonto42/notification-engine/pkg/push"
)

// PushDispatcher fans a notification out to every active subscription of the user
type PushDispatcher struct {
	registry  *PushSubscriptionRegistry
	transport PushTransport
	timeout   time.Duration
	logger    *zap.Logger
}

// NewPushDispatcher creates a new push dispatcher. A zero timeout disables the per-attempt bound.
func NewPushDispatcher(registry *PushSubscriptionRegistry, transport PushTransport, timeout time.Duration, logger *zap.Logger) *PushDispatcher {
	return &PushDispatcher{registry: registry, transport: transport, timeout: timeout, logger: logger}
}

// Channel returns the channel name
func (d *PushDispatcher) Channel() string { return models.ChannelPush }

// Deliver attempts every active subscription concurrently. One outcome per subscription.
func (d *PushDispatcher) Deliver(ctx context.Context, n *models.Notification) []Outcome {
	subs, err := d.registry.ListActive(ctx, n.UserID)
	if err != nil {
		return []Outcome{{Channel: models.ChannelPush, Err: err}}
	}
	if len(subs) == 0 {
		return nil
	}

	msg := push.Message{
		Title:          n.Title,
		Body:           n.Message,
		NotificationID: n.ID,
	}
	if n.ActionURL != nil {
		msg.ActionURL = *n.ActionURL
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return []Outcome{{Channel: models.ChannelPush, Err: fmt.Errorf("encode push message: %w", err)}}
	}

	outcomes := make([]Outcome, len(subs))
	var wg sync.WaitGroup
	for i := range subs {
		wg.Add(1)
		go func(i int, sub models.PushSubscription) {
			defer wg.Done()
			outcomes[i] = d.deliverOne(ctx, sub, payload)
		}(i, subs[i])
	}
	wg.Wait()

	return outcomes
}

func (d *PushDispatcher) deliverOne(ctx context.Context, sub models.PushSubscription, payload []byte) (out Outcome) {
	out = Outcome{Channel: models.ChannelPush, SubscriptionID: sub.ID}
	defer func() {
		if r := recover(); r != nil {
			out.Err = fmt.Errorf("push transport panic: %v", r)
		}
	}()

	sendCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	err := d.transport.Deliver(sendCtx, sub.Payload, payload)
	if err == nil {
		if err := d.registry.Touch(ctx, sub.ID); err != nil {
			d.logger.Warn("failed to update subscription last_used_at", zap.String("subscription_id", sub.ID), zap.Error(err))
		}
		return out
	}

	out.Err = err
	if errors.Is(err, push.ErrSubscriptionGone) {
		flipped, derr := d.registry.Deactivate(ctx, sub.ID)
		if derr != nil {
			d.logger.Warn("failed to deactivate push subscription", zap.String("subscription_id", sub.ID), zap.Error(derr))
		} else if flipped {
			pushDeactivations.Inc()
			d.logger.Info("push subscription deactivated", zap.String("subscription_id", sub.ID), zap.String("user_id", sub.UserID))
		}
	}
	return out
}
