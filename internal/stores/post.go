package stores

import (
	"log/slog"
	"sync"

	"newsboard/internal/actions"
	"newsboard/internal/models"
	"newsboard/internal/realtime"
)

// PostState is one post with its comments, oldest comment first. Post is
// nil while the post does not exist.
type PostState struct {
	PostID   string           `json:"postId"`
	Post     *models.Post     `json:"post"`
	Comments []models.Comment `json:"comments"`
}

// SinglePostStore follows the post the session is looking at.
type SinglePostStore struct {
	db     actions.Database
	logger *slog.Logger
	events emitter[PostState]
	offs   []func()

	mu        sync.Mutex
	gen       int
	state     PostState
	listeners []*realtime.Listener
}

func NewSinglePostStore(db actions.Database, d *actions.Dispatcher, logger *slog.Logger) *SinglePostStore {
	if logger == nil {
		logger = slog.Default()
	}
	s := &SinglePostStore{
		db:     db,
		logger: logger.With("component", "post-store"),
		state:  PostState{Comments: []models.Comment{}},
	}
	s.offs = []func(){
		d.ListenTo(actions.IntentListenToPost, func(ev actions.Event) {
			ref, _ := ev.Payload.(actions.PostRef)
			s.listen(ref.PostID)
		}),
		d.ListenTo(actions.IntentStopListeningToPost, func(ev actions.Event) {
			ref, _ := ev.Payload.(actions.PostRef)
			s.stop(ref.PostID)
		}),
	}
	return s
}

func (s *SinglePostStore) Listen(fn func(PostState)) (off func()) {
	return s.events.listen(fn)
}

func (s *SinglePostStore) State() PostState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyState()
}

func (s *SinglePostStore) Close() {
	for _, off := range s.offs {
		off()
	}
	s.stop("")
}

func (s *SinglePostStore) listen(postID string) {
	if postID == "" {
		return
	}

	s.mu.Lock()
	old := s.detach()
	s.state = PostState{PostID: postID, Comments: []models.Comment{}}
	gen := s.gen
	s.listeners = []*realtime.Listener{
		s.db.On(actions.PostsRef.Child(postID).Query(), func(snap realtime.Snapshot) {
			s.update(gen, func() {
				if !snap.Exists() {
					s.state.Post = nil
					return
				}
				var p models.Post
				if err := snap.Val(&p); err != nil {
					s.logger.Warn("Bad post document", "post", postID, "error", err)
					return
				}
				p.ID = postID
				renderPost(&p)
				s.state.Post = &p
			})
		}),
		s.db.On(actions.CommentsRef.OrderByChild("postId").EqualTo(postID), func(snap realtime.Snapshot) {
			comments := decodeComments(snap, s.logger)
			byTime(comments, commentTime, false)
			renderComments(comments)
			s.update(gen, func() { s.state.Comments = comments })
		}),
	}
	s.mu.Unlock()

	offAll(old)
}

// stop detaches when postID is the followed post, or always for "".
func (s *SinglePostStore) stop(postID string) {
	s.mu.Lock()
	if postID != "" && postID != s.state.PostID {
		s.mu.Unlock()
		return
	}
	old := s.detach()
	s.mu.Unlock()

	offAll(old)
}

// detach invalidates pending snapshots and hands back the listeners to turn
// off outside the lock. Callers hold s.mu.
func (s *SinglePostStore) detach() []*realtime.Listener {
	s.gen++
	old := s.listeners
	s.listeners = nil
	return old
}

func (s *SinglePostStore) update(gen int, apply func()) {
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

func (s *SinglePostStore) copyState() PostState {
	out := PostState{
		PostID:   s.state.PostID,
		Comments: append([]models.Comment{}, s.state.Comments...),
	}
	if s.state.Post != nil {
		p := *s.state.Post
		out.Post = &p
	}
	return out
}

func offAll(ls []*realtime.Listener) {
	for _, l := range ls {
		l.Off()
	}
}
