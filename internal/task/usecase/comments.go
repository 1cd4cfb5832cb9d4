package usecase

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/dgibisch/doit2-sub002/internal/apperrors"
	"github.com/dgibisch/doit2-sub002/internal/task/domain"
	"github.com/dgibisch/doit2-sub002/pkg/store"
)

func (u *taskUsecase) AddComment(ctx context.Context, taskID, authorID, authorName, parentID, content string) (*domain.Comment, error) {
	if content == "" {
		return nil, apperrors.Precondition("comment must not be empty")
	}
	if _, err := u.loadTask(ctx, taskID); err != nil {
		return nil, err
	}

	if parentID != "" {
		comments, err := u.commentRepo.FindByTask(ctx, taskID)
		if err != nil {
			return nil, apperrors.Store(err, "failed to load comments")
		}
		parent := findComment(comments, parentID)
		if parent == nil {
			return nil, apperrors.NotFound("parent comment %s not found", parentID)
		}
		// The tree is two levels deep; a reply to a reply attaches to
		// that reply's root.
		if parent.ParentID != "" {
			parentID = parent.ParentID
		}
	}

	comment := &domain.Comment{
		TaskID:     taskID,
		AuthorID:   authorID,
		AuthorName: authorName,
		ParentID:   parentID,
		Content:    content,
		CreatedAt:  time.Now(),
	}
	id, err := u.commentRepo.Create(ctx, comment)
	if err != nil {
		return nil, apperrors.Store(err, "failed to create comment")
	}
	comment.ID = id
	return comment, nil
}

func (u *taskUsecase) CommentTree(ctx context.Context, taskID string) ([]domain.CommentNode, error) {
	comments, err := u.commentRepo.FindByTask(ctx, taskID)
	if err != nil {
		return nil, apperrors.Store(err, "failed to load comments")
	}
	return BuildCommentTree(comments), nil
}

func (u *taskUsecase) SubscribeCommentTree(ctx context.Context, taskID string, fn func([]domain.CommentNode)) (store.Unsubscribe, error) {
	return u.commentRepo.SubscribeByTask(ctx, taskID, func(comments []domain.Comment) {
		fn(BuildCommentTree(comments))
	})
}

// BuildCommentTree rebuilds the two-level comment tree from a flat
// snapshot: roots ordered ascending by timestamp, each carrying its replies
// in the same order. The transform is pure and rebuilt in full on every
// snapshot; rows are never restructured in the store.
//
// A reply whose root is missing from the snapshot cannot be attached; it is
// dropped from this rebuild with a diagnostic rather than buffered, since
// the next snapshot containing the root will restore it.
func BuildCommentTree(comments []domain.Comment) []domain.CommentNode {
	roots := make([]domain.CommentNode, 0, len(comments))
	index := make(map[string]int, len(comments))
	for _, c := range comments {
		if c.ParentID != "" {
			continue
		}
		index[c.ID] = len(roots)
		roots = append(roots, domain.CommentNode{Comment: c})
	}

	for _, c := range comments {
		if c.ParentID == "" {
			continue
		}
		at, ok := index[c.ParentID]
		if !ok {
			log.Printf("[Comments] dropping reply %s: parent %s missing from snapshot", c.ID, c.ParentID)
			continue
		}
		roots[at].Replies = append(roots[at].Replies, c)
	}

	sort.Slice(roots, func(i, j int) bool {
		return roots[i].CreatedAt.Before(roots[j].CreatedAt)
	})
	for i := range roots {
		replies := roots[i].Replies
		sort.Slice(replies, func(a, b int) bool {
			return replies[a].CreatedAt.Before(replies[b].CreatedAt)
		})
	}
	return roots
}

func findComment(comments []domain.Comment, id string) *domain.Comment {
	for i := range comments {
		if comments[i].ID == id {
			return &comments[i]
		}
	}
	return nil
}
