package stores

import (
	"log/slog"
	"sync"

	"newsboard/internal/actions"
	"newsboard/internal/models"
	"newsboard/internal/realtime"
)

// ProfileState lists what a user wrote, newest first.
type ProfileState struct {
	UserID   string           `json:"userId"`
	Posts    []models.Post    `json:"posts"`
	Comments []models.Comment `json:"comments"`
}

// ProfileStore follows the posts and comments of one author.
type ProfileStore struct {
	db     actions.Database
	logger *slog.Logger
	events emitter[ProfileState]
	offs   []func()

	mu        sync.Mutex
	gen       int
	state     ProfileState
	listeners []*realtime.Listener
}

func NewProfileStore(db actions.Database, d *actions.Dispatcher, logger *slog.Logger) *ProfileStore {
	if logger == nil {
		logger = slog.Default()
	}
	s := &ProfileStore{
		db:     db,
		logger: logger.With("component", "profile-store"),
		state:  emptyProfile(""),
	}
	s.offs = []func(){
		d.ListenTo(actions.IntentListenToProfile, func(ev actions.Event) {
			ref, _ := ev.Payload.(actions.UserRef)
			s.listen(ref.UID)
		}),
		d.ListenTo(actions.IntentStopListeningToProfile, func(ev actions.Event) {
			ref, _ := ev.Payload.(actions.UserRef)
			s.stop(ref.UID)
		}),
	}
	return s
}

func emptyProfile(uid string) ProfileState {
	return ProfileState{UserID: uid, Posts: []models.Post{}, Comments: []models.Comment{}}
}

func (s *ProfileStore) Listen(fn func(ProfileState)) (off func()) {
	return s.events.listen(fn)
}

func (s *ProfileStore) State() ProfileState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyState()
}

func (s *ProfileStore) Close() {
	for _, off := range s.offs {
		off()
	}
	s.stop("")
}

func (s *ProfileStore) listen(uid string) {
	if uid == "" {
		return
	}

	s.mu.Lock()
	s.gen++
	old := s.listeners
	s.state = emptyProfile(uid)
	gen := s.gen
	s.listeners = []*realtime.Listener{
		s.db.On(actions.PostsRef.OrderByChild("authorId").EqualTo(uid), func(snap realtime.Snapshot) {
			posts := decodePosts(snap, s.logger)
			byTime(posts, postTime, true)
			s.update(gen, func() { s.state.Posts = posts })
		}),
		s.db.On(actions.CommentsRef.OrderByChild("authorId").EqualTo(uid), func(snap realtime.Snapshot) {
			comments := decodeComments(snap, s.logger)
			byTime(comments, commentTime, true)
			renderComments(comments)
			s.update(gen, func() { s.state.Comments = comments })
		}),
	}
	s.mu.Unlock()

	offAll(old)
}

func (s *ProfileStore) stop(uid string) {
	s.mu.Lock()
	if uid != "" && uid != s.state.UserID {
		s.mu.Unlock()
		return
	}
	s.gen++
	old := s.listeners
	s.listeners = nil
	s.mu.Unlock()

	offAll(old)
}

func (s *ProfileStore) update(gen int, apply func()) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	apply()
	state := s.copyState()
	s.mu.Unlock()

	s.events.trigger(state)
}

func (s *ProfileStore) copyState() ProfileState {
	return ProfileState{
		UserID:   s.state.UserID,
		Posts:    append([]models.Post{}, s.state.Posts...),
		Comments: append([]models.Comment{}, s.state.Comments...),
	}
}
