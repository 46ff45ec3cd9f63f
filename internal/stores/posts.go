package stores

import (
	"errors"
	"log/slog"
	"math"
	"time"

	"newsboard/internal/actions"
	"newsboard/internal/models"
	"newsboard/internal/realtime"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/samber/lo"
)

const DefaultPageSize = 10

// MaxPage 页码上限，更大的页会把整个集合拉进一次查询
const MaxPage = 1000

// Sort keys and the post fields they order by.
const (
	SortNewest   = "newest"
	SortUpvotes  = "upvotes"
	SortComments = "comments"
)

type SortOptions struct {
	CurrentValue string            `json:"currentValue"`
	Values       map[string]string `json:"values"`
}

func DefaultSortOptions() SortOptions {
	return SortOptions{
		CurrentValue: SortNewest,
		Values: map[string]string{
			SortNewest:   "time",
			SortUpvotes:  "upvotes",
			SortComments: "commentCount",
		},
	}
}

func (o SortOptions) clone() SortOptions {
	values := make(map[string]string, len(o.Values))
	for k, v := range o.Values {
		values[k] = v
	}
	return SortOptions{CurrentValue: o.CurrentValue, Values: values}
}

// PostsState is what the posts store broadcasts.
type PostsState struct {
	Posts       []models.Post `json:"posts"`
	CurrentPage int           `json:"currentPage"`
	NextPage    bool          `json:"nextPage"`
	SortOptions SortOptions   `json:"sortOptions"`
}

// Paginate turns an ascending snapshot of up to page*pageSize+1 posts into a
// descending page of at most page*pageSize posts. The extra item only tells
// whether a further page exists.
func Paginate(posts []models.Post, page, pageSize int) ([]models.Post, bool) {
	endAt := page * pageSize
	out := lo.Reverse(append(make([]models.Post, 0, len(posts)), posts...))
	nextPage := len(out) == endAt+1
	if len(out) > endAt {
		out = out[:endAt]
	}
	return out, nextPage
}

// PostsStore owns the current page of posts. All state lives in an actor;
// intents and snapshots reach it as mailbox messages.
type PostsStore struct {
	root   *actor.RootContext
	pid    *actor.PID
	events emitter[PostsState]
	offs   []func()
}

type (
	listenPosts struct{ page int }
	stopPosts   struct{}
	setSortBy   struct{ value string }
	getState    struct{}

	postsSnapshot struct {
		gen  int
		snap realtime.Snapshot
	}
)

func NewPostsStore(system *actor.ActorSystem, db actions.Database, d *actions.Dispatcher, pageSize int, logger *slog.Logger) *PostsStore {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &PostsStore{root: system.Root}
	props := actor.PropsFromProducer(func() actor.Actor {
		return &postsActor{
			db:       db,
			root:     system.Root,
			pageSize: pageSize,
			publish:  s.events.trigger,
			logger:   logger.With("component", "posts-store"),
			state: PostsState{
				Posts:       []models.Post{},
				CurrentPage: 1,
				NextPage:    true,
				SortOptions: DefaultSortOptions(),
			},
		}
	})
	s.pid = system.Root.Spawn(props)

	s.offs = []func(){
		d.ListenTo(actions.IntentListenToPosts, func(ev actions.Event) {
			page, _ := ev.Payload.(actions.Page)
			s.root.Send(s.pid, &listenPosts{page: page.Page})
		}),
		d.ListenTo(actions.IntentStopListeningToPosts, func(actions.Event) {
			s.root.Send(s.pid, &stopPosts{})
		}),
		d.ListenTo(actions.IntentSetSortBy, func(ev actions.Event) {
			sort, _ := ev.Payload.(actions.SortBy)
			s.root.Send(s.pid, &setSortBy{value: sort.Value})
		}),
	}
	return s
}

// Listen subscribes to broadcasts.
func (s *PostsStore) Listen(fn func(PostsState)) (off func()) {
	return s.events.listen(fn)
}

// State returns the current state once every message sent before it has
// been handled.
func (s *PostsStore) State() (PostsState, error) {
	res, err := s.root.RequestFuture(s.pid, &getState{}, 5*time.Second).Result()
	if err != nil {
		return PostsState{}, err
	}
	state, ok := res.(PostsState)
	if !ok {
		return PostsState{}, errors.New("posts store: unexpected state reply")
	}
	return state, nil
}

// Close detaches from the dispatcher and stops the actor and its listener.
func (s *PostsStore) Close() error {
	for _, off := range s.offs {
		off()
	}
	return s.root.StopFuture(s.pid).Wait()
}

type postsActor struct {
	db       actions.Database
	root     *actor.RootContext
	pageSize int
	publish  func(PostsState)
	logger   *slog.Logger

	state    PostsState
	listener *realtime.Listener
	gen      int
}

func (a *postsActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *listenPosts:
		a.listen(ctx.Self(), msg.page)
	case *stopPosts:
		a.stop()
	case *setSortBy:
		a.setSortBy(msg.value)
	case *postsSnapshot:
		// 丢弃已停止或已替换的查询结果
		if msg.gen == a.gen && a.listener != nil {
			a.updatePosts(msg.snap)
		}
	case *getState:
		ctx.Respond(a.copyState())
	case *actor.Stopping:
		a.stop()
	}
}

func (a *postsActor) listen(self *actor.PID, page int) {
	if limit := min(MaxPage, (math.MaxInt-1)/a.pageSize); page > limit {
		a.logger.Warn("Clamping page", "page", page, "max", limit)
		page = limit
	}
	page = max(page, 1)
	a.stop()
	a.state.CurrentPage = page

	field := a.state.SortOptions.Values[a.state.SortOptions.CurrentValue]
	q := actions.PostsRef.OrderByChild(field).LimitToLast(page*a.pageSize + 1)

	gen := a.gen
	a.listener = a.db.On(q, func(snap realtime.Snapshot) {
		a.root.Send(self, &postsSnapshot{gen: gen, snap: snap})
	})
	a.logger.Debug("Listening to posts", "page", page, "orderBy", field, "limit", q.Last)
}

func (a *postsActor) stop() {
	if a.listener == nil {
		return
	}
	a.listener.Off()
	a.listener = nil
	a.gen++
}

func (a *postsActor) setSortBy(value string) {
	if _, ok := a.state.SortOptions.Values[value]; !ok {
		a.logger.Warn("Ignoring unknown sort option", "value", value)
		return
	}
	a.state.SortOptions.CurrentValue = value
}

// updatePosts decides nextPage from the raw snapshot so a malformed document
// in the sentinel slot still counts.
func (a *postsActor) updatePosts(snap realtime.Snapshot) {
	endAt := a.state.CurrentPage * a.pageSize
	a.state.NextPage = snap.Len() > endAt
	if a.state.NextPage {
		snap.Children = snap.Children[snap.Len()-endAt:]
	}
	a.state.Posts, _ = Paginate(decodePosts(snap, a.logger), a.state.CurrentPage, a.pageSize)
	a.publish(a.copyState())
}

func (a *postsActor) copyState() PostsState {
	return PostsState{
		Posts:       lo.Map(a.state.Posts, func(p models.Post, _ int) models.Post { return p }),
		CurrentPage: a.state.CurrentPage,
		NextPage:    a.state.NextPage,
		SortOptions: a.state.SortOptions.clone(),
	}
}
