package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/anonto42/notification-engine/internal/models"
	"github.com/anonto42/notification-engine/internal/repositories"
)

// PreferenceStore resolves and updates per-user channel preferences.
// The cache is optional and only ever holds rows read back from the store,
// never a row older than the last Update.
type PreferenceStore struct {
	repo   repositories.PreferenceRepository
	cache  repositories.PreferenceCache
	logger *zap.Logger
}

// NewPreferenceStore creates a new preference store. cache may be nil.
func NewPreferenceStore(repo repositories.PreferenceRepository, cache repositories.PreferenceCache, logger *zap.Logger) *PreferenceStore {
	return &PreferenceStore{repo: repo, cache: cache, logger: logger}
}

// Resolve returns the user's preferences, inserting the default row on first access.
// Concurrent first reads converge on a single row.
func (s *PreferenceStore) Resolve(ctx context.Context, userID string) (*models.NotificationPreferences, error) {
	if s.cache == nil {
		return s.load(ctx, userID)
	}

	prefs, err := s.cache.Get(ctx, userID)
	if err != nil {
		s.logger.Warn("preference cache read failed", zap.String("user_id", userID), zap.Error(err))
	} else if prefs != nil {
		return prefs, nil
	}

	// the version must be read before the row so an Update racing this
	// load keeps the older row out of the cache
	version, verr := s.cache.Version(ctx, userID)

	prefs, err = s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	if verr != nil {
		s.logger.Warn("preference cache version read failed", zap.String("user_id", userID), zap.Error(verr))
		return prefs, nil
	}
	stored, err := s.cache.Set(ctx, prefs, version)
	if err != nil {
		s.logger.Warn("preference cache write failed", zap.String("user_id", userID), zap.Error(err))
	} else if !stored {
		s.logger.Debug("preferences changed during load, not cached", zap.String("user_id", userID))
	}
	return prefs, nil
}

func (s *PreferenceStore) load(ctx context.Context, userID string) (*models.NotificationPreferences, error) {
	prefs, err := s.repo.GetByUserID(ctx, userID)
	if err == nil {
		return prefs, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, &PersistenceError{Op: "get preferences", Err: err}
	}

	if err := s.repo.CreateIfAbsent(ctx, models.DefaultPreferences(userID)); err != nil {
		return nil, &PersistenceError{Op: "create default preferences", Err: err}
	}

	prefs, err = s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, &PersistenceError{Op: "get preferences", Err: err}
	}
	return prefs, nil
}

// Update applies a partial update. Enabling quiet hours requires both bounds,
// either in the request or already stored.
func (s *PreferenceStore) Update(ctx context.Context, userID string, req *models.UpdatePreferencesRequest) (*models.NotificationPreferences, error) {
	current, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	setBool := func(column string, v *bool) {
		if v != nil {
			fields[column] = *v
		}
	}

	setBool("in_app_enabled", req.InAppEnabled)
	setBool("email_enabled", req.EmailEnabled)
	setBool("push_enabled", req.PushEnabled)
	setBool("email_booking", req.EmailBooking)
	setBool("push_booking", req.PushBooking)
	setBool("email_approval", req.EmailApproval)
	setBool("push_approval", req.PushApproval)
	setBool("email_payment", req.EmailPayment)
	setBool("push_payment", req.PushPayment)
	setBool("email_message", req.EmailMessage)
	setBool("push_message", req.PushMessage)
	setBool("email_system", req.EmailSystem)
	setBool("push_system", req.PushSystem)
	setBool("quiet_hours_enabled", req.QuietHoursEnabled)

	start, end := current.QuietHoursStart, current.QuietHoursEnd
	if req.QuietHoursStart != nil {
		if _, err := parseClock(*req.QuietHoursStart); err != nil {
			return nil, invalidInput("quiet_hours_start: %v", err)
		}
		start = req.QuietHoursStart
		fields["quiet_hours_start"] = *req.QuietHoursStart
	}
	if req.QuietHoursEnd != nil {
		if _, err := parseClock(*req.QuietHoursEnd); err != nil {
			return nil, invalidInput("quiet_hours_end: %v", err)
		}
		end = req.QuietHoursEnd
		fields["quiet_hours_end"] = *req.QuietHoursEnd
	}
	if req.QuietHoursEnabled != nil && *req.QuietHoursEnabled && (start == nil || end == nil) {
		return nil, invalidInput("quiet hours need both quiet_hours_start and quiet_hours_end")
	}

	if req.Timezone != nil {
		tz := *req.Timezone
		if tz == "" {
			tz = "UTC"
		}
		fields["timezone"] = tz
	}
	if req.DigestMode != nil {
		switch *req.DigestMode {
		case models.DigestRealtime, models.DigestHourly, models.DigestDaily:
			fields["digest_mode"] = *req.DigestMode
		default:
			return nil, invalidInput("unknown digest_mode %q", *req.DigestMode)
		}
	}

	if len(fields) == 0 {
		return current, nil
	}

	if err := s.repo.Update(ctx, userID, fields); err != nil {
		return nil, storeError("update preferences", err)
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, userID); err != nil {
			s.logger.Warn("preference cache invalidation failed", zap.String("user_id", userID), zap.Error(err))
		}
	}

	prefs, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, storeError("get preferences", err)
	}
	return prefs, nil
}
