// Package actions holds the intent vocabulary of the board and the side
// effects some intents perform against the database.
package actions

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"newsboard/internal/realtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	intentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsboard_intents_total",
		Help: "Dispatched intents.",
	}, []string{"intent"})

	intentErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsboard_intent_errors_total",
		Help: "Error intents by code.",
	}, []string{"intent", "code"})
)

// Database is the part of the realtime database the dispatcher writes to.
type Database interface {
	Get(ctx context.Context, q realtime.Query) (realtime.Snapshot, error)
	On(q realtime.Query, fn func(realtime.Snapshot)) *realtime.Listener
	Push(ctx context.Context, ref realtime.Ref, value any) (string, error)
	Set(ctx context.Context, ref realtime.Ref, value any) error
	Remove(ctx context.Context, ref realtime.Ref) error
	Transaction(ctx context.Context, ref realtime.Ref, fn func(current any) (any, error)) (any, error)
}

// Auth is the account side of a database client.
type Auth interface {
	CreateUser(ctx context.Context, creds realtime.Credentials) error
	AuthWithPassword(ctx context.Context, creds realtime.Credentials) (*realtime.AuthData, error)
	Unauth()
	OnAuth(fn func(*realtime.AuthData)) (off func())
}

type Adapter interface {
	Database
	Auth
}

// Collections.
var (
	UsersRef    = realtime.Collection("users")
	PostsRef    = realtime.Collection("posts")
	CommentsRef = realtime.Collection("comments")
)

type observer struct {
	intent Intent // "" 表示所有 intent
	fn     func(Event)
}

// Dispatcher invokes intents for one client session. Intent methods notify
// observers first and then run their side effects in the calling goroutine;
// follow-up intents are plain calls made after the triggering write
// returned. Observers run synchronously in the invoking goroutine.
type Dispatcher struct {
	db     Adapter
	subs   *Subscriptions
	logger *slog.Logger
	now    func() time.Time

	mu        sync.RWMutex
	nextID    int
	observers map[int]observer
	offAuth   func()
}

func New(db Adapter, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		db:        db,
		subs:      NewSubscriptions(),
		logger:    logger.With("component", "dispatcher"),
		now:       time.Now,
		observers: make(map[int]observer),
	}
}

// Listen registers fn for every intent.
func (d *Dispatcher) Listen(fn func(Event)) (off func()) {
	return d.ListenTo("", fn)
}

// ListenTo registers fn for one intent.
func (d *Dispatcher) ListenTo(intent Intent, fn func(Event)) (off func()) {
	d.mu.Lock()
	id := d.nextID
	d.nextID++
	d.observers[id] = observer{intent: intent, fn: fn}
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		delete(d.observers, id)
		d.mu.Unlock()
	}
}

func (d *Dispatcher) emit(intent Intent, payload any) {
	intentsTotal.WithLabelValues(string(intent)).Inc()

	d.mu.RLock()
	fns := make([]func(Event), 0, len(d.observers))
	for _, o := range d.observers {
		if o.intent == "" || o.intent == intent {
			fns = append(fns, o.fn)
		}
	}
	d.mu.RUnlock()

	ev := Event{Intent: intent, Payload: payload}
	for _, fn := range fns {
		fn(ev)
	}
}

// Subscriptions returns the standing listeners owned by this dispatcher.
func (d *Dispatcher) Subscriptions() *Subscriptions {
	return d.subs
}

// Close stops the auth watcher and detaches its listeners.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	off := d.offAuth
	d.offAuth = nil
	d.mu.Unlock()

	if off != nil {
		off()
	}
	d.subs.DetachProfiles()
}

func (d *Dispatcher) timestamp() int64 {
	return d.now().UnixMilli()
}
