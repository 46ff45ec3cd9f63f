package stores

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"newsboard/internal/actions"
	"newsboard/internal/models"
	"newsboard/internal/realtime"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ascending(n int) []models.Post {
	posts := make([]models.Post, n)
	for i := range posts {
		posts[i] = models.Post{ID: fmt.Sprintf("p%02d", i), Time: int64(i)}
	}
	return posts
}

func TestPaginate(t *testing.T) {
	for page := 1; page <= 4; page++ {
		for size := 1; size <= 5; size++ {
			n := page * size

			out, next := Paginate(ascending(n+1), page, size)
			assert.True(t, next, "page %d size %d", page, size)
			require.Len(t, out, n)
			for i := 1; i < len(out); i++ {
				assert.Greater(t, out[i-1].Time, out[i].Time)
			}
			assert.Equal(t, int64(n), out[0].Time)

			for _, m := range []int{0, n - 1, n} {
				out, next := Paginate(ascending(m), page, size)
				assert.False(t, next, "page %d size %d items %d", page, size, m)
				assert.Len(t, out, m)
			}
		}
	}
}

func TestPaginateSecondPage(t *testing.T) {
	out, next := Paginate(ascending(21), 2, 10)
	require.True(t, next)
	require.Len(t, out, 20)
	assert.Equal(t, "p20", out[0].ID)
	assert.Equal(t, "p01", out[19].ID)
	assert.NotNil(t, out)

	out, next = Paginate(nil, 1, 10)
	assert.False(t, next)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

type storeFixture struct {
	db     *realtime.Database
	client *realtime.Client
	d      *actions.Dispatcher
	store  *PostsStore
	states chan PostsState
}

func newStoreFixture(t *testing.T, pageSize int) *storeFixture {
	t.Helper()
	db := realtime.New(realtime.NewMemoryStorage())
	client := db.NewClient()
	d := actions.New(client, nil)
	store := NewPostsStore(actor.NewActorSystem(), client, d, pageSize, nil)

	states := make(chan PostsState, 64)
	store.Listen(func(s PostsState) { states <- s })
	t.Cleanup(func() {
		_ = store.Close()
		d.Close()
	})
	return &storeFixture{db: db, client: client, d: d, store: store, states: states}
}

func (f *storeFixture) seed(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := f.client.Push(context.Background(), actions.PostsRef, models.Post{
			Title:   fmt.Sprintf("post %d", i),
			Time:    int64(1000 + i),
			Upvotes: n - i,
		})
		require.NoError(t, err)
	}
}

// next waits for a broadcast matching ok.
func (f *storeFixture) next(t *testing.T, ok func(PostsState) bool) PostsState {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case s := <-f.states:
			if ok(s) {
				return s
			}
		case <-timeout:
			t.Fatal("timed out waiting for posts broadcast")
			return PostsState{}
		}
	}
}

func TestPostsStoreInitialState(t *testing.T) {
	t.Parallel()
	f := newStoreFixture(t, 0)

	state, err := f.store.State()
	require.NoError(t, err)
	assert.Equal(t, 1, state.CurrentPage)
	assert.True(t, state.NextPage)
	assert.Empty(t, state.Posts)
	assert.Equal(t, SortNewest, state.SortOptions.CurrentValue)
	assert.Equal(t, "commentCount", state.SortOptions.Values[SortComments])
}

func TestPostsStoreListenSecondPage(t *testing.T) {
	t.Parallel()
	f := newStoreFixture(t, 10)
	f.seed(t, 25)

	f.d.ListenToPosts(2)
	state := f.next(t, func(s PostsState) bool { return len(s.Posts) > 0 })

	require.Len(t, state.Posts, 20)
	assert.True(t, state.NextPage)
	assert.Equal(t, 2, state.CurrentPage)
	assert.Equal(t, int64(1024), state.Posts[0].Time)
	assert.Equal(t, int64(1005), state.Posts[19].Time)
	assert.NotEmpty(t, state.Posts[0].ID)
}

// querySpy records every live query the store attaches.
type querySpy struct {
	*realtime.Client
	queries chan realtime.Query
}

func (s *querySpy) On(q realtime.Query, fn func(realtime.Snapshot)) *realtime.Listener {
	s.queries <- q
	return s.Client.On(q, fn)
}

func TestPostsStoreRequestsSentinel(t *testing.T) {
	t.Parallel()
	client := realtime.New(realtime.NewMemoryStorage()).NewClient()
	spy := &querySpy{Client: client, queries: make(chan realtime.Query, 4)}
	d := actions.New(client, nil)
	store := NewPostsStore(actor.NewActorSystem(), spy, d, 10, nil)
	t.Cleanup(func() { _ = store.Close() })

	d.SetSortBy(SortComments)
	d.ListenToPosts(2)
	select {
	case q := <-spy.queries:
		assert.Equal(t, 21, q.Last)
		assert.Equal(t, "commentCount", q.OrderBy)
		assert.Equal(t, "posts", q.Ref.Collection)
	case <-time.After(3 * time.Second):
		t.Fatal("store never attached a query")
	}
}

func TestPostsStoreClampsHugePage(t *testing.T) {
	t.Parallel()
	f := newStoreFixture(t, 10)
	f.seed(t, 3)

	f.d.ListenToPosts(math.MaxInt/10 + 1)
	state := f.next(t, func(s PostsState) bool { return len(s.Posts) == 3 })
	assert.Equal(t, MaxPage, state.CurrentPage)
	assert.False(t, state.NextPage)
}

func TestPostsStoreMalformedSentinel(t *testing.T) {
	t.Parallel()
	f := newStoreFixture(t, 2)
	f.seed(t, 2)
	// 最旧的一条落在哨兵位置且无法解码
	require.NoError(t, f.client.Set(context.Background(), actions.PostsRef.Child("bad"), map[string]any{"title": 42, "time": 1}))

	f.d.ListenToPosts(1)
	state := f.next(t, func(s PostsState) bool { return len(s.Posts) == 2 })
	assert.True(t, state.NextPage)
	assert.Equal(t, int64(1001), state.Posts[0].Time)
	assert.Equal(t, int64(1000), state.Posts[1].Time)
}

func TestPostsStoreFollowsWrites(t *testing.T) {
	t.Parallel()
	f := newStoreFixture(t, 10)
	f.seed(t, 2)

	f.d.ListenToPosts(1)
	state := f.next(t, func(s PostsState) bool { return len(s.Posts) == 2 })
	assert.False(t, state.NextPage)

	_, err := f.d.SubmitPost(context.Background(), models.Post{Title: "fresh", Time: 5000})
	require.NoError(t, err)

	state = f.next(t, func(s PostsState) bool { return len(s.Posts) == 3 })
	assert.Equal(t, "fresh", state.Posts[0].Title)
}

func TestPostsStoreStop(t *testing.T) {
	t.Parallel()
	f := newStoreFixture(t, 10)
	f.seed(t, 1)

	f.d.ListenToPosts(1)
	f.next(t, func(s PostsState) bool { return len(s.Posts) == 1 })

	f.d.StopListeningToPosts()
	f.d.StopListeningToPosts()
	_, err := f.store.State()
	require.NoError(t, err)
	require.Zero(t, f.db.Listeners())

	f.seed(t, 1)
	select {
	case s := <-f.states:
		t.Fatalf("unexpected broadcast after stop: %+v", s)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestPostsStoreRelistenReplacesListener(t *testing.T) {
	t.Parallel()
	f := newStoreFixture(t, 10)

	f.d.ListenToPosts(1)
	f.d.ListenToPosts(2)
	state, err := f.store.State()
	require.NoError(t, err)
	assert.Equal(t, 2, state.CurrentPage)
	assert.Equal(t, 1, f.db.Listeners())
}

func TestPostsStoreSortBy(t *testing.T) {
	t.Parallel()
	f := newStoreFixture(t, 10)
	f.seed(t, 3)

	f.d.SetSortBy(SortUpvotes)
	state, err := f.store.State()
	require.NoError(t, err)
	assert.Equal(t, SortUpvotes, state.SortOptions.CurrentValue)
	assert.Zero(t, f.db.Listeners(), "setSortBy must not query")

	f.d.ListenToPosts(1)
	state = f.next(t, func(s PostsState) bool { return len(s.Posts) == 3 })
	// 票数最高的是最早的帖子
	assert.Equal(t, 3, state.Posts[0].Upvotes)
	assert.Equal(t, int64(1000), state.Posts[0].Time)
}

func TestPostsStoreIgnoresUnknownSort(t *testing.T) {
	t.Parallel()
	f := newStoreFixture(t, 10)

	f.d.SetSortBy(SortComments)
	f.d.SetSortBy("hot")
	state, err := f.store.State()
	require.NoError(t, err)
	assert.Equal(t, SortComments, state.SortOptions.CurrentValue)
}
