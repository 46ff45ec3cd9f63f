package actions

import (
	"context"

	"newsboard/internal/models"
	"newsboard/internal/realtime"
)

// UpdateCommentCount adds delta to posts/<id>/commentCount in a single
// read-modify-write transaction.
func (d *Dispatcher) UpdateCommentCount(ctx context.Context, postID string, delta int) error {
	d.emit(IntentUpdateCommentCount, CommentCount{PostID: postID, Delta: delta})

	_, err := d.db.Transaction(ctx, PostsRef.Child(postID).Child("commentCount"), func(current any) (any, error) {
		return ToInt(current) + delta, nil
	})
	if err != nil {
		d.logger.Error("Comment count update failed", "post", postID, "delta", delta, "error", err)
		d.PostError(realtime.Code(err))
		return err
	}
	return nil
}

// AddComment pushes the comment, then increments the post's comment count.
func (d *Dispatcher) AddComment(ctx context.Context, comment models.Comment) (string, error) {
	if comment.Time == 0 {
		comment.Time = d.timestamp()
	}
	comment.Upvotes = 0
	d.emit(IntentAddComment, comment)

	id, err := d.db.Push(ctx, CommentsRef, comment.Stored())
	if err != nil {
		d.PostError(realtime.Code(err))
		return "", err
	}
	return id, d.UpdateCommentCount(ctx, comment.PostID, 1)
}

// DeleteComment removes the comment, then decrements the post's comment
// count.
func (d *Dispatcher) DeleteComment(ctx context.Context, commentID, postID string) error {
	d.emit(IntentDeleteComment, CommentRef{CommentID: commentID, PostID: postID})

	if err := d.db.Remove(ctx, CommentsRef.Child(commentID)); err != nil {
		d.PostError(realtime.Code(err))
		return err
	}
	return d.UpdateCommentCount(ctx, postID, -1)
}

func (d *Dispatcher) UpvoteComment(userID, commentID string) {
	d.emit(IntentUpvoteComment, VotePayload{UserID: userID, ItemID: commentID})
}

func (d *Dispatcher) DownvoteComment(userID, commentID string) {
	d.emit(IntentDownvoteComment, VotePayload{UserID: userID, ItemID: commentID})
}

// ToInt reads a counter value decoded from JSON; unset counts as 0.
func ToInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	default:
		return 0
	}
}
