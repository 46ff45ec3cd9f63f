package stores

import (
	"context"
	"log/slog"
	"sync"

	"newsboard/internal/actions"
	"newsboard/internal/models"
	"newsboard/internal/realtime"
)

// UserState is the logged in user, empty after logout.
type UserState struct {
	UID     string          `json:"uid,omitempty"`
	Profile *models.Profile `json:"profile"`
}

// UserStore tracks the current profile and applies votes.
type UserStore struct {
	db     actions.Database
	d      *actions.Dispatcher
	logger *slog.Logger
	events emitter[UserState]
	offs   []func()

	mu    sync.Mutex
	state UserState
}

func NewUserStore(db actions.Database, d *actions.Dispatcher, logger *slog.Logger) *UserStore {
	if logger == nil {
		logger = slog.Default()
	}
	s := &UserStore{db: db, d: d, logger: logger.With("component", "user-store")}

	s.offs = []func(){
		d.ListenTo(actions.IntentUpdateProfile, func(ev actions.Event) {
			update, _ := ev.Payload.(actions.ProfileUpdate)
			s.set(UserState{UID: update.UID, Profile: update.Profile})
		}),
		d.ListenTo(actions.IntentLogoutCompleted, func(actions.Event) {
			s.set(UserState{})
		}),
		d.ListenTo(actions.IntentUpvotePost, s.onVote(actions.PostsRef, true)),
		d.ListenTo(actions.IntentDownvotePost, s.onVote(actions.PostsRef, false)),
		d.ListenTo(actions.IntentUpvoteComment, s.onVote(actions.CommentsRef, true)),
		d.ListenTo(actions.IntentDownvoteComment, s.onVote(actions.CommentsRef, false)),
	}
	return s
}

func (s *UserStore) Listen(fn func(UserState)) (off func()) {
	return s.events.listen(fn)
}

func (s *UserStore) State() UserState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *UserStore) Close() {
	for _, off := range s.offs {
		off()
	}
}

func (s *UserStore) set(state UserState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	s.events.trigger(state)
}

func (s *UserStore) onVote(items realtime.Ref, up bool) func(actions.Event) {
	return func(ev actions.Event) {
		vote, _ := ev.Payload.(actions.VotePayload)
		if err := s.Vote(context.Background(), items, vote.UserID, vote.ItemID, up); err != nil {
			s.logger.Warn("Vote failed", "user", vote.UserID, "item", vote.ItemID, "up", up, "error", err)
			s.d.PostError(realtime.Code(err))
		}
	}
}

// Vote flips users/<uid>/upvoted/<id> and, only when the flag changed,
// moves the item's upvote counter by one. Both are separate transactions; a
// failed counter update puts the flag back so the vote can be retried.
func (s *UserStore) Vote(ctx context.Context, items realtime.Ref, userID, itemID string, up bool) error {
	if userID == "" || itemID == "" {
		return &realtime.Error{Code: realtime.CodeInvalidUser, Op: "vote"}
	}

	var changed bool
	flag := actions.UsersRef.Child(userID).Child("upvoted").Child(itemID)
	_, err := s.db.Transaction(ctx, flag, func(current any) (any, error) {
		voted, _ := current.(bool)
		changed = voted != up
		if up {
			return true, nil
		}
		return nil, nil
	})
	if err != nil || !changed {
		return err
	}

	delta := 1
	if !up {
		delta = -1
	}
	_, err = s.db.Transaction(ctx, items.Child(itemID).Child("upvotes"), func(current any) (any, error) {
		return actions.ToInt(current) + delta, nil
	})
	if err != nil {
		_, rerr := s.db.Transaction(context.WithoutCancel(ctx), flag, func(any) (any, error) {
			if up {
				return nil, nil
			}
			return true, nil
		})
		if rerr != nil {
			s.logger.Error("Vote flag rollback failed", "user", userID, "item", itemID, "error", rerr)
		}
		return err
	}
	return nil
}
