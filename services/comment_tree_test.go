package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chu-duc-anh/imnovelteam/models"
)

var treeBase = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func makeComment(id string, author *models.UserSummary, parentID *string, minutes int) models.Comment {
	return models.Comment{
		ID:        id,
		StoryID:   "story-1",
		Author:    author,
		Text:      "text " + id,
		Timestamp: treeBase.Add(time.Duration(minutes) * time.Minute),
		Likes:     []string{},
		ParentID:  parentID,
	}
}

func summaryOf(id, role string) *models.UserSummary {
	return &models.UserSummary{ID: id, Username: "u-" + id, Role: role}
}

func ids(nodes []*CommentNode) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID)
	}
	return out
}

func TestBuildCommentTreeNestsReplies(t *testing.T) {
	author := summaryOf("u1", models.RoleUser)
	parent := makeComment("c1", author, nil, 0)
	reply := makeComment("c2", author, strPtr("c1"), 1)
	nested := makeComment("c3", author, strPtr("c2"), 2)

	tree := BuildCommentTree([]models.Comment{nested, reply, parent}, nil, "")

	require.Len(t, tree, 1)
	assert.Equal(t, "c1", tree[0].ID)
	require.Len(t, tree[0].Replies, 1)
	assert.Equal(t, "c2", tree[0].Replies[0].ID)
	require.Len(t, tree[0].Replies[0].Replies, 1)
	assert.Equal(t, "c3", tree[0].Replies[0].Replies[0].ID)
}

func TestBuildCommentTreeOrdering(t *testing.T) {
	author := summaryOf("u1", models.RoleUser)

	old := makeComment("old", author, nil, 0)
	mid := makeComment("mid", author, nil, 10)
	newest := makeComment("new", author, nil, 20)
	pinned := makeComment("pinned", author, nil, 5)
	pinned.IsPinned = true

	tree := BuildCommentTree([]models.Comment{old, newest, pinned, mid}, nil, "")

	// Pinned first, then newest to oldest
	assert.Equal(t, []string{"pinned", "new", "mid", "old"}, ids(tree))
}

func TestBuildCommentTreeReplyOrdering(t *testing.T) {
	author := summaryOf("u1", models.RoleUser)
	parent := makeComment("p", author, nil, 0)
	late := makeComment("late", author, strPtr("p"), 30)
	early := makeComment("early", author, strPtr("p"), 10)

	tree := BuildCommentTree([]models.Comment{late, parent, early}, nil, "")

	require.Len(t, tree, 1)
	// Replies read chronologically, oldest first
	assert.Equal(t, []string{"early", "late"}, ids(tree[0].Replies))
}

func TestBuildCommentTreeDropsAuthorlessComments(t *testing.T) {
	author := summaryOf("u1", models.RoleUser)
	ok := makeComment("ok", author, nil, 0)
	ghost := makeComment("ghost", nil, nil, 1)
	replyToGhost := makeComment("reply", author, strPtr("ghost"), 2)

	tree := BuildCommentTree([]models.Comment{ok, ghost, replyToGhost}, nil, "")

	// The ghost disappears; its reply survives at the top level
	assert.Equal(t, []string{"reply", "ok"}, ids(tree))
}

func TestBuildCommentTreePromotesOrphans(t *testing.T) {
	author := summaryOf("u1", models.RoleUser)
	orphan := makeComment("orphan", author, strPtr("deleted-parent"), 0)

	tree := BuildCommentTree([]models.Comment{orphan}, nil, "")

	require.Len(t, tree, 1)
	assert.Equal(t, "orphan", tree[0].ID)
	assert.Empty(t, tree[0].Replies)
}

func TestBuildCommentTreeViewerAnnotations(t *testing.T) {
	author := summaryOf("u1", models.RoleUser)
	c := makeComment("c1", author, nil, 0)
	c.Likes = []string{"u2"}

	t.Run("anonymous viewer gets no annotations", func(t *testing.T) {
		tree := BuildCommentTree([]models.Comment{c}, nil, "")
		require.Len(t, tree, 1)
		assert.False(t, tree[0].IsLikedByViewer)
		assert.False(t, tree[0].CanDelete)
		assert.False(t, tree[0].CanPin)
	})

	t.Run("liker sees their like", func(t *testing.T) {
		viewer := &models.User{ID: "u2", Role: models.RoleUser}
		tree := BuildCommentTree([]models.Comment{c}, viewer, "")
		assert.True(t, tree[0].IsLikedByViewer)
		assert.False(t, tree[0].CanDelete)
	})

	t.Run("author can delete own comment", func(t *testing.T) {
		viewer := &models.User{ID: "u1", Role: models.RoleUser}
		tree := BuildCommentTree([]models.Comment{c}, viewer, "")
		assert.True(t, tree[0].CanDelete)
		assert.False(t, tree[0].CanPin)
	})

	t.Run("admin can delete and pin anything", func(t *testing.T) {
		viewer := &models.User{ID: "u9", Role: models.RoleAdmin}
		tree := BuildCommentTree([]models.Comment{c}, viewer, "")
		assert.True(t, tree[0].CanDelete)
		assert.True(t, tree[0].CanPin)
	})
}

func TestShowTranslatorBadge(t *testing.T) {
	creatorID := "contractor-1"

	contractor := summaryOf(creatorID, models.RoleContractor)
	assert.True(t, ShowTranslatorBadge(contractor, creatorID))

	otherContractor := summaryOf("contractor-2", models.RoleContractor)
	assert.False(t, ShowTranslatorBadge(otherContractor, creatorID))

	ally := summaryOf("u5", models.RoleUser)
	ally.AllyOf = &models.UserRef{ID: creatorID, Username: "creator"}
	assert.True(t, ShowTranslatorBadge(ally, creatorID))

	stranger := summaryOf("u6", models.RoleUser)
	assert.False(t, ShowTranslatorBadge(stranger, creatorID))

	assert.False(t, ShowTranslatorBadge(nil, creatorID))
	assert.False(t, ShowTranslatorBadge(contractor, ""))
}

func TestBuildCommentTreeIsDeterministic(t *testing.T) {
	author := summaryOf("u1", models.RoleUser)
	comments := []models.Comment{
		makeComment("a", author, nil, 0),
		makeComment("b", author, nil, 0), // same timestamp as a
		makeComment("c", author, strPtr("a"), 1),
	}

	first := BuildCommentTree(comments, nil, "")
	second := BuildCommentTree(comments, nil, "")

	assert.Equal(t, ids(first), ids(second))
}

func strPtr(s string) *string {
	return &s
}
