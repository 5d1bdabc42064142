package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/anonto42/notification-engine/internal/models"
	"github.com/anonto42/notification-engine/internal/repositories"
)

func TestPreferenceStore_ResolveCreatesDefaults(t *testing.T) {
	db := newTestDB(t)
	store := NewPreferenceStore(repositories.NewPostgresPreferenceRepository(db), nil, zap.NewNop())

	prefs, err := store.Resolve(context.Background(), "user-1")
	require.NoError(t, err)

	want := models.DefaultPreferences("user-1")
	assert.Equal(t, want.InAppEnabled, prefs.InAppEnabled)
	assert.True(t, prefs.EmailEnabled)
	assert.True(t, prefs.PushEnabled)
	assert.True(t, prefs.EmailMessage)
	assert.False(t, prefs.QuietHoursEnabled)
	assert.Equal(t, "UTC", prefs.Timezone)
	assert.Equal(t, models.DigestRealtime, prefs.DigestMode)
}

func TestPreferenceStore_ConcurrentFirstResolve(t *testing.T) {
	db := newTestDB(t)
	store := NewPreferenceStore(repositories.NewPostgresPreferenceRepository(db), nil, zap.NewNop())

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = store.Resolve(context.Background(), "user-1")
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}

	var rows int64
	require.NoError(t, db.Model(&models.NotificationPreferences{}).Where("user_id = ?", "user-1").Count(&rows).Error)
	assert.EqualValues(t, 1, rows)
}

func TestPreferenceStore_PartialUpdate(t *testing.T) {
	db := newTestDB(t)
	store := NewPreferenceStore(repositories.NewPostgresPreferenceRepository(db), nil, zap.NewNop())
	ctx := context.Background()

	prefs, err := store.Update(ctx, "user-1", &models.UpdatePreferencesRequest{
		EmailPayment: boolPtr(false),
		Timezone:     strPtr("Europe/Berlin"),
		DigestMode:   strPtr(models.DigestDaily),
	})
	require.NoError(t, err)
	assert.False(t, prefs.EmailPayment)
	assert.True(t, prefs.PushPayment, "untouched fields keep their value")
	assert.True(t, prefs.EmailBooking)
	assert.Equal(t, "Europe/Berlin", prefs.Timezone)
	assert.Equal(t, models.DigestDaily, prefs.DigestMode)

	prefs, err = store.Update(ctx, "user-1", &models.UpdatePreferencesRequest{EmailPayment: boolPtr(true)})
	require.NoError(t, err)
	assert.True(t, prefs.EmailPayment)
	assert.Equal(t, "Europe/Berlin", prefs.Timezone)

	unchanged, err := store.Update(ctx, "user-1", &models.UpdatePreferencesRequest{})
	require.NoError(t, err)
	assert.Equal(t, prefs.EmailPayment, unchanged.EmailPayment)
}

func TestPreferenceStore_QuietHoursValidation(t *testing.T) {
	db := newTestDB(t)
	store := NewPreferenceStore(repositories.NewPostgresPreferenceRepository(db), nil, zap.NewNop())
	ctx := context.Background()

	_, err := store.Update(ctx, "user-1", &models.UpdatePreferencesRequest{QuietHoursEnabled: boolPtr(true)})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = store.Update(ctx, "user-1", &models.UpdatePreferencesRequest{
		QuietHoursEnabled: boolPtr(true),
		QuietHoursStart:   strPtr("22:00"),
	})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = store.Update(ctx, "user-1", &models.UpdatePreferencesRequest{QuietHoursStart: strPtr("7pm!!")})
	assert.ErrorIs(t, err, ErrInvalidInput)

	prefs, err := store.Resolve(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, prefs.QuietHoursEnabled, "rejected updates write nothing")
	assert.Nil(t, prefs.QuietHoursStart)

	// bounds stored earlier satisfy a later enable
	_, err = store.Update(ctx, "user-1", &models.UpdatePreferencesRequest{
		QuietHoursStart: strPtr("22:00"),
		QuietHoursEnd:   strPtr("06:00"),
	})
	require.NoError(t, err)

	prefs, err = store.Update(ctx, "user-1", &models.UpdatePreferencesRequest{QuietHoursEnabled: boolPtr(true)})
	require.NoError(t, err)
	assert.True(t, prefs.QuietHoursEnabled)
	require.NotNil(t, prefs.QuietHoursStart)
	assert.Equal(t, "22:00", *prefs.QuietHoursStart)
	require.NotNil(t, prefs.QuietHoursEnd)
	assert.Equal(t, "06:00", *prefs.QuietHoursEnd)
}

func TestPreferenceStore_Cache(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	cache, err := repositories.NewRedisPreferenceCache(ctx, "redis://"+mr.Addr(), time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	db := newTestDB(t)
	store := NewPreferenceStore(repositories.NewPostgresPreferenceRepository(db), cache, zap.NewNop())

	_, err = store.Resolve(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("notification:prefs:user-1"))

	_, err = store.Update(ctx, "user-1", &models.UpdatePreferencesRequest{PushEnabled: boolPtr(false)})
	require.NoError(t, err)
	assert.False(t, mr.Exists("notification:prefs:user-1"), "update invalidates the cached row")

	prefs, err := store.Resolve(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, prefs.PushEnabled)

	// a cache outage falls through to the store
	mr.Close()
	prefs, err = store.Resolve(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, prefs.PushEnabled)
}

// stallingPreferenceRepo holds the first GetByUserID after it has read the row
type stallingPreferenceRepo struct {
	repositories.PreferenceRepository
	stalled atomic.Bool
	read    chan struct{}
	release chan struct{}
}

func (r *stallingPreferenceRepo) GetByUserID(ctx context.Context, userID string) (*models.NotificationPreferences, error) {
	prefs, err := r.PreferenceRepository.GetByUserID(ctx, userID)
	if r.stalled.CompareAndSwap(false, true) {
		close(r.read)
		<-r.release
	}
	return prefs, err
}

func TestPreferenceStore_UpdateDuringResolveIsNotCachedStale(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	cache, err := repositories.NewRedisPreferenceCache(ctx, "redis://"+mr.Addr(), time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	db := newTestDB(t)
	base := repositories.NewPostgresPreferenceRepository(db)
	require.NoError(t, base.CreateIfAbsent(ctx, models.DefaultPreferences("user-1")))

	repo := &stallingPreferenceRepo{
		PreferenceRepository: base,
		read:                 make(chan struct{}),
		release:              make(chan struct{}),
	}
	store := NewPreferenceStore(repo, cache, zap.NewNop())

	done := make(chan *models.NotificationPreferences)
	go func() {
		prefs, err := store.Resolve(ctx, "user-1")
		assert.NoError(t, err)
		done <- prefs
	}()

	<-repo.read
	updated, err := store.Update(ctx, "user-1", &models.UpdatePreferencesRequest{EmailEnabled: boolPtr(false)})
	require.NoError(t, err)
	assert.False(t, updated.EmailEnabled)

	close(repo.release)
	inFlight := <-done
	assert.True(t, inFlight.EmailEnabled, "the racing read saw the row before the update")
	assert.False(t, mr.Exists("notification:prefs:user-1"), "the pre-update row is not cached")

	prefs, err := store.Resolve(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, prefs.EmailEnabled)

	cached, err := cache.Get(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.False(t, cached.EmailEnabled)
}
