package repository

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chu-duc-anh/imnovelteam/models"
)

func TestChatRepositoryDeleteThread(t *testing.T) {
	t.Run("rejects the admin pseudo-id", func(t *testing.T) {
		repo := NewChatRepository()

		err := repo.DeleteThread(models.AdminUserID)

		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNotFound))
	})
}
