package actions

import (
	"context"
	"errors"

	"newsboard/internal/models"
	"newsboard/internal/realtime"
)

// SubmitPost pushes a new post and on success sends the view to it.
func (d *Dispatcher) SubmitPost(ctx context.Context, post models.Post) (string, error) {
	if post.Time == 0 {
		post.Time = d.timestamp()
	}
	// 计数只能通过事务修改
	post.Upvotes, post.CommentCount = 0, 0
	d.emit(IntentSubmitPost, post)

	id, err := d.db.Push(ctx, PostsRef, post.Stored())
	if err != nil {
		d.logger.Warn("Post submission failed", "author", post.AuthorID, "error", err)
		d.PostError(realtime.Code(err))
		return "", err
	}
	d.GoToPost(id)
	return id, nil
}

// DeletePost removes the post and then every comment referencing it. The
// two steps are independent writes: a failure in the second leaves orphaned
// comments behind.
func (d *Dispatcher) DeletePost(ctx context.Context, postID string) error {
	d.emit(IntentDeletePost, PostRef{PostID: postID})

	var errs []error
	if err := d.db.Remove(ctx, PostsRef.Child(postID)); err != nil {
		errs = append(errs, err)
	}

	comments, err := d.db.Get(ctx, CommentsRef.OrderByChild("postId").EqualTo(postID))
	if err != nil {
		errs = append(errs, err)
	}
	for _, key := range comments.Keys() {
		if err := d.db.Remove(ctx, CommentsRef.Child(key)); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		d.logger.Error("Post deletion incomplete", "post", postID, "error", err)
		d.PostError(realtime.Code(errs[0]))
		return err
	}
	d.logger.Info("Post deleted", "post", postID, "comments", comments.Len())
	return nil
}

func (d *Dispatcher) UpvotePost(userID, postID string) {
	d.emit(IntentUpvotePost, VotePayload{UserID: userID, ItemID: postID})
}

func (d *Dispatcher) DownvotePost(userID, postID string) {
	d.emit(IntentDownvotePost, VotePayload{UserID: userID, ItemID: postID})
}

// SetSortBy only announces the new sort key. The posts store does not
// re-query on it: callers follow up with ListenToPosts.
func (d *Dispatcher) SetSortBy(value string) {
	d.emit(IntentSetSortBy, SortBy{Value: value})
}

func (d *Dispatcher) ListenToPosts(page int) {
	d.emit(IntentListenToPosts, Page{Page: page})
}

func (d *Dispatcher) StopListeningToPosts() {
	d.emit(IntentStopListeningToPosts, nil)
}

func (d *Dispatcher) ListenToPost(postID string) {
	d.emit(IntentListenToPost, PostRef{PostID: postID})
}

func (d *Dispatcher) StopListeningToPost(postID string) {
	d.emit(IntentStopListeningToPost, PostRef{PostID: postID})
}

func (d *Dispatcher) ListenToProfile(uid string) {
	d.emit(IntentListenToProfile, UserRef{UID: uid})
}

func (d *Dispatcher) StopListeningToProfile(uid string) {
	d.emit(IntentStopListeningToProfile, UserRef{UID: uid})
}

func (d *Dispatcher) PostError(code string) {
	intentErrorsTotal.WithLabelValues(string(IntentPostError), code).Inc()
	d.emit(IntentPostError, ErrorPayload{Code: code})
}

func (d *Dispatcher) ShowOverlay(kind string) {
	d.emit(IntentShowOverlay, Overlay{Kind: kind})
}

func (d *Dispatcher) GoToPost(postID string) {
	d.emit(IntentGoToPost, PostRef{PostID: postID})
}
