package services

import (
	"fmt"
	"time"

	"github.com/chu-duc-anh/imnovelteam/models"
)

// SentCounter counts how many messages a sender has created since a
// point in time
type SentCounter interface {
	CountSentSince(senderID string, since time.Time) (int, error)
}

// QuotaService enforces the daily chat message allowance. Admins and
// contractors are exempt; everyone else gets a fixed number of messages
// per UTC day.
type QuotaService struct {
	limit   int
	counter SentCounter
}

// NewQuotaService creates a quota service with the configured daily limit
func NewQuotaService(limit int, counter SentCounter) *QuotaService {
	return &QuotaService{limit: limit, counter: counter}
}

// RemainingFor reports the user's current allowance. Exempt users get
// {-1, -1}.
func (s *QuotaService) RemainingFor(user *models.User) (models.ChatLimitResponse, error) {
	if user.HasUnlimitedMessages() {
		return models.ChatLimitResponse{Limit: -1, Remaining: -1}, nil
	}

	sent, err := s.counter.CountSentSince(user.ChatIdentity(), startOfDayUTC(time.Now()))
	if err != nil {
		return models.ChatLimitResponse{}, fmt.Errorf("failed to compute quota: %w", err)
	}

	remaining := s.limit - sent
	if remaining < 0 {
		remaining = 0
	}
	return models.ChatLimitResponse{Limit: s.limit, Remaining: remaining}, nil
}

// CanSend reports whether the user may send another message today
func (s *QuotaService) CanSend(user *models.User) (bool, error) {
	quota, err := s.RemainingFor(user)
	if err != nil {
		return false, err
	}
	return quota.Remaining != 0, nil
}

func startOfDayUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
