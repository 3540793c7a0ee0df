package services

import (
	"sort"

	"github.com/chu-duc-anh/imnovelteam/models"
)

// CommentNode is one comment annotated for the requesting viewer, with
// its replies nested beneath it.
type CommentNode struct {
	models.Comment
	IsLikedByViewer     bool           `json:"is_liked_by_viewer"`
	CanDelete           bool           `json:"can_delete"`
	CanPin              bool           `json:"can_pin"`
	ShowTranslatorBadge bool           `json:"show_translator_badge"`
	Replies             []*CommentNode `json:"replies"`
}

// BuildCommentTree converts a flat comment list into a nested tree
// annotated for the viewer. It is a pure function: the same input always
// yields the same output, and malformed records never cause an error.
//
// Rules:
//   - comments without an author are dropped silently
//   - comments whose parent is missing from the set are promoted to the
//     top level instead of disappearing
//   - pinned comments sort before unpinned ones at every level
//   - top-level comments are ordered newest first, replies oldest first
//
// viewer may be nil (anonymous), in which case every annotation is false.
func BuildCommentTree(comments []models.Comment, viewer *models.User, storyCreatorID string) []*CommentNode {
	present := make(map[string]bool, len(comments))
	for _, c := range comments {
		if c.Author != nil {
			present[c.ID] = true
		}
	}
	return buildCommentLevel(comments, nil, present, viewer, storyCreatorID)
}

// buildCommentLevel assembles the children of parentID (nil for the top
// level), recursing for each child's own replies
func buildCommentLevel(comments []models.Comment, parentID *string, present map[string]bool, viewer *models.User, storyCreatorID string) []*CommentNode {
	var selected []models.Comment
	for _, c := range comments {
		if c.Author == nil {
			continue
		}
		if !belongsToLevel(c.ParentID, parentID, present) {
			continue
		}
		selected = append(selected, c)
	}

	sortCommentLevel(selected, parentID == nil)

	nodes := make([]*CommentNode, 0, len(selected))
	for _, c := range selected {
		nodes = append(nodes, &CommentNode{
			Comment:             c,
			IsLikedByViewer:     IsLikedByViewer(c, viewer),
			CanDelete:           CanDeleteComment(c, viewer),
			CanPin:              CanPinComment(viewer),
			ShowTranslatorBadge: ShowTranslatorBadge(c.Author, storyCreatorID),
			Replies:             buildCommentLevel(comments, &c.ID, present, viewer, storyCreatorID),
		})
	}
	return nodes
}

// belongsToLevel reports whether a comment with the given parent reference
// belongs to the level identified by parentID. A reference to a comment
// not present in the set degrades to the top level.
func belongsToLevel(commentParent, parentID *string, present map[string]bool) bool {
	effective := commentParent
	if commentParent != nil && !present[*commentParent] {
		effective = nil
	}
	if parentID == nil {
		return effective == nil
	}
	return effective != nil && *effective == *parentID
}

// sortCommentLevel orders one level in place: pinned first, then by
// timestamp (descending at the top level, ascending for replies so a
// conversation reads chronologically)
func sortCommentLevel(comments []models.Comment, topLevel bool) {
	sort.SliceStable(comments, func(i, j int) bool {
		a, b := comments[i], comments[j]
		if a.IsPinned != b.IsPinned {
			return a.IsPinned
		}
		if topLevel {
			return a.Timestamp.After(b.Timestamp)
		}
		return a.Timestamp.Before(b.Timestamp)
	})
}

// IsLikedByViewer reports whether the viewer has liked the comment
func IsLikedByViewer(c models.Comment, viewer *models.User) bool {
	if viewer == nil {
		return false
	}
	for _, id := range c.Likes {
		if id == viewer.ID {
			return true
		}
	}
	return false
}

// CanDeleteComment reports whether the viewer may delete the comment:
// admins and the comment's own author
func CanDeleteComment(c models.Comment, viewer *models.User) bool {
	if viewer == nil || c.Author == nil {
		return false
	}
	return viewer.Role == models.RoleAdmin || viewer.ID == c.Author.ID
}

// CanPinComment reports whether the viewer may pin comments (admin only)
func CanPinComment(viewer *models.User) bool {
	return viewer != nil && viewer.Role == models.RoleAdmin
}

// ShowTranslatorBadge reports whether the comment author should carry the
// translator badge: the contractor who created the story, or any ally of
// that contractor
func ShowTranslatorBadge(author *models.UserSummary, storyCreatorID string) bool {
	if author == nil || storyCreatorID == "" {
		return false
	}
	if author.Role == models.RoleContractor && author.ID == storyCreatorID {
		return true
	}
	return author.AllyOf != nil && author.AllyOf.ID == storyCreatorID
}
