package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"newsboard/internal/realtime"
	"newsboard/internal/services"
	"newsboard/internal/stores"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	db := realtime.New(realtime.NewMemoryStorage(), realtime.WithHashCost(bcrypt.MinCost))
	reg, err := services.NewRegistry(db, 10, 0, nil)
	require.NoError(t, err)
	srv := httptest.NewServer(New(reg, "test-secret", nil))
	t.Cleanup(func() {
		srv.Close()
		reg.Close()
	})
	return srv
}

type browser struct {
	t    *testing.T
	srv  *httptest.Server
	http *http.Client
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func newBrowser(t *testing.T, srv *httptest.Server) *browser {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{t: t, srv: srv, http: &http.Client{Jar: jar}}
}

func (b *browser) do(method, path string, body any) (int, map[string]any) {
	b.t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(b.t, err)
		r = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, b.srv.URL+path, r)
	require.NoError(b.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := b.http.Do(req)
	require.NoError(b.t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return resp.StatusCode, out
}

// doDetached sends the request with a context that is already cancelled, as
// if the client went away right after sending it.
func (b *browser) doDetached(method, path string, body any) int {
	b.t.Helper()
	var r io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(b.t, err)
		r = bytes.NewReader(raw)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequestWithContext(ctx, method, b.srv.URL+path, r)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range b.http.Jar.Cookies(mustURL(b.t, b.srv.URL)) {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	b.srv.Config.Handler.ServeHTTP(w, req)
	return w.Code
}

func (b *browser) register(username, email string) string {
	b.t.Helper()
	code, body := b.do(http.MethodPost, "/api/register", gin.H{"username": username, "email": email, "password": "secret"})
	require.Equal(b.t, http.StatusOK, code, body)
	uid, _ := body["uid"].(string)
	require.NotEmpty(b.t, uid)
	return uid
}

func (b *browser) postsState() stores.PostsState {
	b.t.Helper()
	resp, err := b.http.Get(b.srv.URL + "/api/posts/state")
	require.NoError(b.t, err)
	defer resp.Body.Close()
	var state stores.PostsState
	require.NoError(b.t, json.NewDecoder(resp.Body).Decode(&state))
	return state
}

func TestRegisterErrors(t *testing.T) {
	srv := newServer(t)
	b := newBrowser(t, srv)

	code, body := b.do(http.MethodPost, "/api/register", gin.H{"username": "", "email": "a@example.com", "password": "pw"})
	assert.Equal(t, http.StatusAccepted, code)
	assert.Equal(t, "NO_USERNAME", body["error"])

	b.register("ann", "ann@example.com")
	other := newBrowser(t, srv)
	code, body = other.do(http.MethodPost, "/api/register", gin.H{"username": "ann", "email": "ann2@example.com", "password": "pw"})
	assert.Equal(t, http.StatusAccepted, code)
	assert.Equal(t, "USERNAME_TAKEN", body["error"])

	code, body = other.do(http.MethodPost, "/api/login", gin.H{"email": "ann@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusAccepted, code)
	assert.Equal(t, realtime.CodeInvalidPassword, body["error"])

	code, _ = other.do(http.MethodPost, "/api/login", gin.H{"email": "ann@example.com"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAuthRequired(t *testing.T) {
	srv := newServer(t)
	b := newBrowser(t, srv)

	code, body := b.do(http.MethodPost, "/api/posts", gin.H{"title": "hi"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "AUTH_REQUIRED", body["error"])

	b.register("ann", "ann@example.com")
	code, _ = b.do(http.MethodPost, "/api/posts", gin.H{"title": "hi"})
	assert.Equal(t, http.StatusCreated, code)

	code, _ = b.do(http.MethodPost, "/api/logout", nil)
	assert.Equal(t, http.StatusNoContent, code)
	code, _ = b.do(http.MethodPost, "/api/posts", gin.H{"title": "again"})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestPostLifecycle(t *testing.T) {
	srv := newServer(t)
	b := newBrowser(t, srv)
	uid := b.register("ann", "ann@example.com")

	code, body := b.do(http.MethodGet, "/api/me", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, uid, body["uid"])
	assert.Contains(t, body["avatar"], "gravatar.com")

	code, _ = b.do(http.MethodPost, "/api/posts", gin.H{"title": "bad", "url": "not a url"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = b.do(http.MethodPost, "/api/posts", gin.H{"title": "hello", "body": "*hi*"})
	require.Equal(t, http.StatusCreated, code)
	postID := body["id"].(string)

	code, _ = b.do(http.MethodPost, "/api/posts/listen", gin.H{"page": 1})
	require.Equal(t, http.StatusAccepted, code)
	require.Eventually(t, func() bool { return len(b.postsState().Posts) == 1 }, 3*time.Second, 20*time.Millisecond)
	state := b.postsState()
	assert.Equal(t, "hello", state.Posts[0].Title)
	assert.Equal(t, "ann", state.Posts[0].Author)

	code, body = b.do(http.MethodPost, "/api/posts/"+postID+"/comments", gin.H{"body": "first!"})
	require.Equal(t, http.StatusCreated, code)
	commentID := body["id"].(string)

	code, _ = b.do(http.MethodPost, "/api/posts/"+postID+"/upvote", nil)
	require.Equal(t, http.StatusAccepted, code)
	require.Eventually(t, func() bool {
		p := b.postsState().Posts
		return len(p) == 1 && p[0].CommentCount == 1 && p[0].Upvotes == 1
	}, 3*time.Second, 20*time.Millisecond)

	code, body = b.do(http.MethodPost, "/api/posts/missing/comments", gin.H{"body": "lost"})
	assert.Equal(t, http.StatusAccepted, code)
	assert.Equal(t, realtime.CodeNotFound, body["error"])

	other := newBrowser(t, srv)
	other.register("bob", "bob@example.com")
	code, _ = other.do(http.MethodDelete, "/api/posts/"+postID, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = b.do(http.MethodDelete, "/api/comments/"+commentID, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = b.do(http.MethodDelete, "/api/comments/"+commentID+"?postId="+postID, nil)
	assert.Equal(t, http.StatusNoContent, code)

	code, _ = b.do(http.MethodDelete, "/api/posts/"+postID, nil)
	assert.Equal(t, http.StatusNoContent, code)
	require.Eventually(t, func() bool { return len(b.postsState().Posts) == 0 }, 3*time.Second, 20*time.Millisecond)
}

func TestCommentCountSurvivesDisconnect(t *testing.T) {
	srv := newServer(t)
	b := newBrowser(t, srv)
	b.register("ann", "ann@example.com")

	code, body := b.do(http.MethodPost, "/api/posts", gin.H{"title": "hello"})
	require.Equal(t, http.StatusCreated, code)
	postID := body["id"].(string)
	b.do(http.MethodPost, "/api/posts/listen", gin.H{"page": 1})

	require.Equal(t, http.StatusCreated, b.doDetached(http.MethodPost, "/api/posts/"+postID+"/comments", gin.H{"body": "bye"}))
	require.Eventually(t, func() bool {
		p := b.postsState().Posts
		return len(p) == 1 && p[0].CommentCount == 1
	}, 3*time.Second, 20*time.Millisecond)

	code, body = b.do(http.MethodPost, "/api/posts/"+postID+"/comments", gin.H{"body": "again"})
	require.Equal(t, http.StatusCreated, code)
	commentID := body["id"].(string)
	require.Eventually(t, func() bool {
		p := b.postsState().Posts
		return len(p) == 1 && p[0].CommentCount == 2
	}, 3*time.Second, 20*time.Millisecond)
	require.Equal(t, http.StatusNoContent, b.doDetached(http.MethodDelete, "/api/comments/"+commentID+"?postId="+postID, nil))
	require.Eventually(t, func() bool {
		p := b.postsState().Posts
		return len(p) == 1 && p[0].CommentCount == 1
	}, 3*time.Second, 20*time.Millisecond)
}

func TestListenRejectsHugePage(t *testing.T) {
	srv := newServer(t)
	b := newBrowser(t, srv)

	code, body := b.do(http.MethodPost, "/api/posts/listen?page=922337203685477581", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "INVALID_REQUEST", body["error"])

	code, _ = b.do(http.MethodPost, "/api/posts/listen", gin.H{"page": stores.MaxPage + 1})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = b.do(http.MethodPost, "/api/posts/listen", gin.H{"page": stores.MaxPage})
	assert.Equal(t, http.StatusAccepted, code)
	require.Eventually(t, func() bool { return b.postsState().CurrentPage == stores.MaxPage }, 3*time.Second, 20*time.Millisecond)
}

func TestCreatePostFromLink(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Linked story</title></head><body><p>text</p></body></html>`))
	}))
	defer page.Close()

	srv := newServer(t)
	b := newBrowser(t, srv)
	b.register("ann", "ann@example.com")

	code, body := b.do(http.MethodGet, "/api/preview?url="+url.QueryEscape(page.URL), nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Linked story", body["title"])

	code, _ = b.do(http.MethodPost, "/api/posts", gin.H{"url": page.URL})
	require.Equal(t, http.StatusCreated, code)
	code, _ = b.do(http.MethodPost, "/api/posts", gin.H{"body": "no title"})
	assert.Equal(t, http.StatusBadRequest, code)

	b.do(http.MethodPost, "/api/posts/listen", gin.H{"page": 1})
	require.Eventually(t, func() bool {
		p := b.postsState().Posts
		return len(p) == 1 && p[0].Title == "Linked story"
	}, 3*time.Second, 20*time.Millisecond)
}

func TestSortAndStop(t *testing.T) {
	srv := newServer(t)
	b := newBrowser(t, srv)

	code, _ := b.do(http.MethodPost, "/api/posts/sort", gin.H{"value": "upvotes"})
	require.Equal(t, http.StatusAccepted, code)
	code, _ = b.do(http.MethodPost, "/api/posts/sort", gin.H{})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = b.do(http.MethodPost, "/api/posts/stop", nil)
	assert.Equal(t, http.StatusAccepted, code)
	code, _ = b.do(http.MethodPost, "/api/posts/stop", nil)
	assert.Equal(t, http.StatusAccepted, code)

	state := b.postsState()
	assert.Equal(t, stores.SortUpvotes, state.SortOptions.CurrentValue)
	assert.Equal(t, 1, state.CurrentPage)
}

func TestStream(t *testing.T) {
	srv := newServer(t)
	b := newBrowser(t, srv)
	b.register("ann", "ann@example.com")

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	header := http.Header{}
	for _, c := range b.http.Jar.Cookies(mustURL(t, srv.URL)) {
		header.Add("Cookie", c.String())
	}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	defer conn.Close()

	read := func() services.Message {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
		var m services.Message
		require.NoError(t, conn.ReadJSON(&m))
		return m
	}

	assert.Equal(t, services.MessagePosts, read().Type)
	assert.Equal(t, services.MessageUser, read().Type)

	code, _ := b.do(http.MethodPost, "/api/overlay", gin.H{"kind": "login"})
	require.Equal(t, http.StatusAccepted, code)
	for {
		m := read()
		if m.Type != services.MessageIntent {
			continue
		}
		ev := m.Payload.(map[string]any)
		if ev["intent"] == "showOverlay" {
			assert.Equal(t, map[string]any{"kind": "login"}, ev["payload"])
			break
		}
	}
}

func TestMetrics(t *testing.T) {
	srv := newServer(t)
	b := newBrowser(t, srv)
	b.do(http.MethodPost, "/api/posts/listen", nil)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "newsboard_intents_total")
	assert.Contains(t, string(raw), "newsboard_sessions")
}
