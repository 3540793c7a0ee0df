package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chu-duc-anh/imnovelteam/models"
)

type fakeCounter struct {
	sent  int
	since time.Time
	err   error
}

func (f *fakeCounter) CountSentSince(senderID string, since time.Time) (int, error) {
	f.since = since
	return f.sent, f.err
}

func TestQuotaServiceRemainingFor(t *testing.T) {
	user := &models.User{ID: "u1", Role: models.RoleUser}

	t.Run("subtracts messages sent today", func(t *testing.T) {
		svc := NewQuotaService(20, &fakeCounter{sent: 5})
		quota, err := svc.RemainingFor(user)
		require.NoError(t, err)
		assert.Equal(t, models.ChatLimitResponse{Limit: 20, Remaining: 15}, quota)
	})

	t.Run("floors at zero when over the limit", func(t *testing.T) {
		svc := NewQuotaService(20, &fakeCounter{sent: 25})
		quota, err := svc.RemainingFor(user)
		require.NoError(t, err)
		assert.Equal(t, 0, quota.Remaining)
	})

	t.Run("counts from the start of the UTC day", func(t *testing.T) {
		counter := &fakeCounter{}
		svc := NewQuotaService(20, counter)

		// Bracket the call so the assertion holds even if the UTC day
		// rolls over mid-test
		before := time.Now().UTC()
		_, err := svc.RemainingFor(user)
		require.NoError(t, err)
		after := time.Now().UTC()

		startOfDay := func(t time.Time) time.Time {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		}
		assert.Equal(t, time.UTC, counter.since.Location())
		assert.Contains(t, []time.Time{startOfDay(before), startOfDay(after)}, counter.since)
	})

	t.Run("exempt roles never hit the counter", func(t *testing.T) {
		counter := &fakeCounter{err: errors.New("should not be called")}
		svc := NewQuotaService(20, counter)

		for _, role := range []string{models.RoleAdmin, models.RoleContractor} {
			quota, err := svc.RemainingFor(&models.User{ID: "x", Role: role})
			require.NoError(t, err)
			assert.Equal(t, models.ChatLimitResponse{Limit: -1, Remaining: -1}, quota)
		}
	})

	t.Run("propagates counter errors", func(t *testing.T) {
		svc := NewQuotaService(20, &fakeCounter{err: errors.New("db down")})
		_, err := svc.RemainingFor(user)
		assert.Error(t, err)
	})
}

func TestQuotaServiceCanSend(t *testing.T) {
	user := &models.User{ID: "u1", Role: models.RoleUser}

	svc := NewQuotaService(20, &fakeCounter{sent: 19})
	allowed, err := svc.CanSend(user)
	require.NoError(t, err)
	assert.True(t, allowed)

	svc = NewQuotaService(20, &fakeCounter{sent: 20})
	allowed, err = svc.CanSend(user)
	require.NoError(t, err)
	assert.False(t, allowed)

	// Exempt users report -1 remaining, which still allows sending
	svc = NewQuotaService(20, &fakeCounter{sent: 999})
	allowed, err = svc.CanSend(&models.User{ID: "a", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.True(t, allowed)
}
