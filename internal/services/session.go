package services

import (
	"log/slog"
	"sync"

	"newsboard/internal/actions"
	"newsboard/internal/realtime"
	"newsboard/internal/stores"

	"github.com/asynkron/protoactor-go/actor"
)

// Message types pushed to a session's stream.
const (
	MessageIntent  = "intent"
	MessagePosts   = "posts"
	MessageUser    = "user"
	MessagePost    = "post"
	MessageProfile = "profile"
)

// Message is one entry on the session stream: an observed intent or a store
// broadcast.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Session is everything one browser owns: a database client with its own
// auth, a dispatcher and the stores listening to it.
type Session struct {
	ID         string
	Client     *realtime.Client
	Dispatcher *actions.Dispatcher
	Posts      *stores.PostsStore
	User       *stores.UserStore
	Post       *stores.SinglePostStore
	Profile    *stores.ProfileStore

	logger *slog.Logger
	once   sync.Once
}

func NewSession(id string, db *realtime.Database, system *actor.ActorSystem, pageSize int, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("session", id)

	client := db.NewClient()
	d := actions.New(client, logger)
	s := &Session{
		ID:         id,
		Client:     client,
		Dispatcher: d,
		Posts:      stores.NewPostsStore(system, client, d, pageSize, logger),
		User:       stores.NewUserStore(client, d, logger),
		Post:       stores.NewSinglePostStore(client, d, logger),
		Profile:    stores.NewProfileStore(client, d, logger),
		logger:     logger,
	}
	d.WatchAuth()
	return s
}

// Listen forwards intents and store broadcasts to fn until off is called.
// fn may run on several goroutines at once.
func (s *Session) Listen(fn func(Message)) (off func()) {
	offs := []func(){
		s.Dispatcher.Listen(func(ev actions.Event) {
			fn(Message{Type: MessageIntent, Payload: ev})
		}),
		s.Posts.Listen(func(st stores.PostsState) {
			fn(Message{Type: MessagePosts, Payload: st})
		}),
		s.User.Listen(func(st stores.UserState) {
			fn(Message{Type: MessageUser, Payload: st})
		}),
		s.Post.Listen(func(st stores.PostState) {
			fn(Message{Type: MessagePost, Payload: st})
		}),
		s.Profile.Listen(func(st stores.ProfileState) {
			fn(Message{Type: MessageProfile, Payload: st})
		}),
	}
	return func() {
		for _, off := range offs {
			off()
		}
	}
}

// UID returns the logged in user, "" when anonymous.
func (s *Session) UID() string {
	if auth := s.Client.Auth(); auth != nil {
		return auth.UID
	}
	return ""
}

// Close detaches every listener the session holds. Safe to call twice.
func (s *Session) Close() {
	s.once.Do(func() {
		if err := s.Posts.Close(); err != nil {
			s.logger.Warn("Posts store did not stop cleanly", "error", err)
		}
		s.Post.Close()
		s.Profile.Close()
		s.User.Close()
		s.Dispatcher.Close()
		s.logger.Debug("Session closed")
	})
}
