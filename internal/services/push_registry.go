package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/anonto42/notification-engine/internal/models"
	"github.com/anonto42/notification-engine/internal/repositories"
)

// PushSubscriptionRegistry manages device subscriptions for the push channel.
// Re-registering the same payload for a user refreshes the existing row.
type PushSubscriptionRegistry struct {
	repo repositories.PushSubscriptionRepository
	now  func() time.Time
}

// NewPushSubscriptionRegistry creates a new registry
func NewPushSubscriptionRegistry(repo repositories.PushSubscriptionRepository) *PushSubscriptionRegistry {
	return &PushSubscriptionRegistry{repo: repo, now: time.Now}
}

// Subscribe registers or reactivates a subscription
func (r *PushSubscriptionRegistry) Subscribe(ctx context.Context, userID, payload, deviceLabel string) (*models.PushSubscription, error) {
	payload = normalizePayload(payload)
	if payload == "" {
		return nil, invalidInput("subscription payload is empty")
	}

	now := r.now()
	sub := &models.PushSubscription{
		ID:          uuid.NewString(),
		UserID:      userID,
		PayloadHash: payloadHash(payload),
		Payload:     payload,
		DeviceLabel: deviceLabel,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	saved, err := r.repo.Upsert(ctx, sub)
	if err != nil {
		return nil, &PersistenceError{Op: "save push subscription", Err: err}
	}
	return saved, nil
}

// Unsubscribe removes one of the user's subscriptions
func (r *PushSubscriptionRegistry) Unsubscribe(ctx context.Context, id, userID string) error {
	if err := r.repo.Delete(ctx, id, userID); err != nil {
		return storeError("delete push subscription", err)
	}
	return nil
}

// List returns every subscription the user has registered, active or not
func (r *PushSubscriptionRegistry) List(ctx context.Context, userID string) ([]models.PushSubscription, error) {
	subs, err := r.repo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, &PersistenceError{Op: "list push subscriptions", Err: err}
	}
	return subs, nil
}

// ListActive returns the subscriptions eligible for delivery
func (r *PushSubscriptionRegistry) ListActive(ctx context.Context, userID string) ([]models.PushSubscription, error) {
	subs, err := r.repo.ListActiveByUserID(ctx, userID)
	if err != nil {
		return nil, &PersistenceError{Op: "list active push subscriptions", Err: err}
	}
	return subs, nil
}

// Deactivate flags a subscription as gone. It reports whether this call flipped it.
func (r *PushSubscriptionRegistry) Deactivate(ctx context.Context, id string) (bool, error) {
	return r.repo.Deactivate(ctx, id)
}

// Touch records a successful delivery
func (r *PushSubscriptionRegistry) Touch(ctx context.Context, id string) error {
	return r.repo.TouchLastUsed(ctx, id, r.now())
}

// normalizePayload compacts JSON payloads so formatting differences hash the same.
// Anything else (an FCM registration token) is trimmed.
func normalizePayload(payload string) string {
	payload = strings.TrimSpace(payload)
	if strings.HasPrefix(payload, "{") {
		var v map[string]any
		if err := json.Unmarshal([]byte(payload), &v); err == nil {
			if b, err := json.Marshal(v); err == nil {
				return string(b)
			}
		}
	}
	return payload
}

func payloadHash(payload string) string {
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
