package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStoryRecomputeRating(t *testing.T) {
	t.Run("averages all submitted scores", func(t *testing.T) {
		story := &Story{Ratings: []StoryRating{
			{UserID: "u1", Score: 5},
			{UserID: "u2", Score: 4},
			{UserID: "u3", Score: 2},
		}}

		story.RecomputeRating()

		assert.Equal(t, 3, story.RatingCount)
		assert.InDelta(t, 11.0/3.0, story.Rating, 1e-9)
	})

	t.Run("zeroes the aggregate when no ratings remain", func(t *testing.T) {
		story := &Story{Rating: 4.5, RatingCount: 2}

		story.RecomputeRating()

		assert.Equal(t, 0, story.RatingCount)
		assert.Equal(t, 0.0, story.Rating)
	})
}

func TestStoryIsBookmarkedBy(t *testing.T) {
	story := &Story{Bookmarks: []string{"u1", "u2"}}

	assert.True(t, story.IsBookmarkedBy("u2"))
	assert.False(t, story.IsBookmarkedBy("u3"))
	assert.False(t, (&Story{}).IsBookmarkedBy("u1"))
}
